package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aitasks/backend"
	"aitasks/internal/ai"
	"aitasks/internal/utils"

	"github.com/bytedance/sonic"
)

const dayLayout = "2006-01-02"

// CachedInsights is the on-disk form of the last generated insights.
// CallerID is empty for the anonymous caller.
type CachedInsights struct {
	CallerID  string       `json:"callerId"`
	Date      string       `json:"date"`
	Insights  []ai.Insight `json:"insights"`
	Timestamp int64        `json:"timestamp"`
}

// InsightCache stores insights in a JSON file.
type InsightCache struct {
	path string
}

// GetCacheDir returns the XDG-compliant cache directory path
func GetCacheDir() (string, error) {
	dir, err := utils.XDGDir("XDG_CACHE_HOME", ".cache")
	if err != nil {
		return "", err
	}
	return dir, os.MkdirAll(dir, 0755)
}

// New returns a cache backed by path.
func New(path string) *InsightCache {
	return &InsightCache{path: path}
}

// Default returns the cache at $XDG_CACHE_HOME/aitasks/insights.json.
func Default() (*InsightCache, error) {
	dir, err := GetCacheDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(dir, "insights.json")), nil
}

// Path returns the cache file location.
func (c *InsightCache) Path() string {
	return c.path
}

// Load reads the cache file. A missing file returns os.ErrNotExist.
func (c *InsightCache) Load() (*CachedInsights, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var cached CachedInsights
	if err := sonic.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("corrupt insight cache %s: %w", c.path, err)
	}
	return &cached, nil
}

// Save replaces the cache with insights generated for callerID on now's
// calendar day.
func (c *InsightCache) Save(callerID string, insights []ai.Insight, now time.Time) error {
	cached := CachedInsights{
		CallerID:  callerID,
		Date:      now.Format(dayLayout),
		Insights:  insights,
		Timestamp: now.Unix(),
	}
	data, err := sonic.ConfigStd.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ForDay returns the cached insights when they were generated for callerID
// on now's day.
func (c *InsightCache) ForDay(callerID string, now time.Time) ([]ai.Insight, bool) {
	cached, err := c.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			utils.Warnf("Ignoring insight cache: %v", err)
		}
		return nil, false
	}
	if cached.CallerID != callerID || cached.Date != now.Format(dayLayout) {
		return nil, false
	}
	return cached.Insights, true
}

// MarkRead flips IsRead on callerID's insight with id, or on all of them
// when id is empty. It returns how many insights changed.
func (c *InsightCache) MarkRead(callerID, id string) (int, error) {
	cached, err := c.Load()
	if err != nil {
		return 0, err
	}
	if cached.CallerID != callerID {
		return 0, nil
	}
	changed := 0
	for i := range cached.Insights {
		if (id == "" || cached.Insights[i].ID == id) && !cached.Insights[i].IsRead {
			cached.Insights[i].IsRead = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	data, err := sonic.ConfigStd.MarshalIndent(cached, "", "  ")
	if err != nil {
		return 0, err
	}
	return changed, os.WriteFile(c.path, data, 0644)
}

// LoadInsightsWithFallback returns callerID's cached insights for today,
// generating and caching new ones when the cache is stale, belongs to
// another caller, is missing or refresh is set. Empty generations are not
// cached so a later call can retry.
func LoadInsightsWithFallback(ctx context.Context, c *InsightCache, gw *ai.Gateway, callerID string, tasks []backend.Task, now time.Time, refresh bool) []ai.Insight {
	if !refresh {
		if insights, ok := c.ForDay(callerID, now); ok {
			return insights
		}
	}

	insights := gw.GenerateDailyInsights(ctx, tasks)
	if len(insights) > 0 {
		if err := c.Save(callerID, insights, now); err != nil {
			utils.Warnf("Failed to cache insights: %v", err)
		}
	}
	return insights
}
