package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hotitems/pkg/logger"
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers < 1 {
		config.Workers = 1
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("loadgen")
	client := NewClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("items", config.Items),
		logger.Int("likes", config.Likes),
		logger.Int("workers", config.Workers),
		logger.Int("topN", config.TopN))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	ids := createItems(ctx, log, client, config, stats)
	if len(ids) == 0 {
		return stats, errors.New("no items were created")
	}

	accepted := sendLikes(ctx, log, client, config, ids, Plan(len(ids), config.Likes, nil), stats)

	hot, err := client.Hot(ctx, config.TopN)
	if err != nil {
		return stats, fmt.Errorf("hot list retrieval failed: %w", err)
	}
	stats.HotEntries = len(hot)

	expected := make(map[string]int64, len(ids))
	for i, id := range ids {
		expected[id] = accepted[i].Load()
	}
	if err := Verify(hot, expected, config.TopN); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// createItems creates the configured number of items and returns the ids
// that the service acknowledged.
func createItems(ctx context.Context, log logger.Logger, client *Client, config *Config, stats *Stats) []string {
	ids := make([]string, config.Items)
	var failed atomic.Int64

	forEach(ctx, config.Workers, config.Items, func(i int) {
		id, err := client.Create(ctx, fmt.Sprintf("load item %d", i), uuid.NewString())
		if err != nil {
			failed.Add(1)
			if config.Verbose {
				log.Warn(ctx, "create failed", logger.Int("index", i), logger.Error(err))
			}
			return
		}
		ids[i] = id
	})

	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	stats.ItemsCreated = len(out)
	stats.ItemsFailed = int(failed.Load())
	log.Info(ctx, "items created", logger.Int("created", stats.ItemsCreated), logger.Int("failed", stats.ItemsFailed))
	return out
}

// sendLikes sends one like per plan entry and returns the acknowledged
// count per item index.
func sendLikes(ctx context.Context, log logger.Logger, client *Client, config *Config, ids []string, plan []int, stats *Stats) []atomic.Int64 {
	accepted := make([]atomic.Int64, len(ids))
	var ok, conflict, failed atomic.Int64

	forEach(ctx, config.Workers, len(plan), func(i int) {
		idx := plan[i]
		err := client.Like(ctx, ids[idx])
		switch {
		case err == nil:
			accepted[idx].Add(1)
			ok.Add(1)
		case errors.Is(err, ErrConflict):
			conflict.Add(1)
		default:
			failed.Add(1)
			if config.Verbose {
				log.Warn(ctx, "like failed", logger.String("id", ids[idx]), logger.Error(err))
			}
		}
	})

	stats.LikesSent = len(plan)
	stats.LikesAccepted = int(ok.Load())
	stats.LikesConflict = int(conflict.Load())
	stats.LikesFailed = int(failed.Load())
	log.Info(ctx, "likes sent",
		logger.Int("accepted", stats.LikesAccepted),
		logger.Int("conflict", stats.LikesConflict),
		logger.Int("failed", stats.LikesFailed))
	return accepted
}

// forEach runs fn for every index in [0, n) on workers goroutines.
func forEach(ctx context.Context, workers, n int, fn func(i int)) {
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var likesPerSecond float64
	if stats.Duration > 0 {
		likesPerSecond = float64(stats.LikesSent) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("itemsCreated", stats.ItemsCreated),
		logger.Int("likesSent", stats.LikesSent),
		logger.Int("likesAccepted", stats.LikesAccepted),
		logger.Int("likesConflict", stats.LikesConflict),
		logger.Int("likesFailed", stats.LikesFailed),
		logger.Int("hotEntries", stats.HotEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("likesPerSecond", likesPerSecond))
}
