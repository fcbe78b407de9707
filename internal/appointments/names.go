package appointments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/httpapi"
)

// NamePending is returned while an employee's name is still being fetched in
// the background.
const NamePending = "Cargando..."

const nameFetchTimeout = 10 * time.Second

// nameCache memoizes employee display names. A miss starts one background
// fetch per id and serves a placeholder until it lands.
type nameCache struct {
	api *httpapi.Client
	log *slog.Logger

	mu      sync.Mutex
	names   map[int64]string
	pending map[int64]struct{}
}

func newNameCache(api *httpapi.Client, log *slog.Logger) *nameCache {
	return &nameCache{
		api:     api,
		log:     log,
		names:   make(map[int64]string),
		pending: make(map[int64]struct{}),
	}
}

func (n *nameCache) get(employeeID int64) string {
	n.mu.Lock()
	if name, ok := n.names[employeeID]; ok {
		n.mu.Unlock()
		return name
	}
	if _, inflight := n.pending[employeeID]; inflight {
		n.mu.Unlock()
		return NamePending
	}
	n.pending[employeeID] = struct{}{}
	n.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), nameFetchTimeout)
		defer cancel()
		if _, err := n.fetch(ctx, employeeID); err != nil {
			n.log.Warn("employee name fetch failed",
				slog.Int64("employee_id", employeeID),
				slog.Any("err", err),
			)
		}
		n.mu.Lock()
		delete(n.pending, employeeID)
		n.mu.Unlock()
	}()

	return NamePending
}

func (n *nameCache) fetch(ctx context.Context, employeeID int64) (string, error) {
	emp, err := httpapi.GetCached[domain.Employee](ctx, n.api, employeePath(employeeID), nil, httpapi.CacheOptions{})
	if err != nil {
		return "", err
	}
	name := emp.DisplayName()
	n.mu.Lock()
	n.names[employeeID] = name
	n.mu.Unlock()
	return name, nil
}

// resolveAll fetches every id concurrently and merges results keyed by id,
// independent of completion order. Failed ids fall back to the memo or the
// placeholder; the first error is reported after all fetches finish.
func (n *nameCache) resolveAll(ctx context.Context, ids []int64) (map[int64]string, error) {
	results := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			name, err := n.fetch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("employee %d: %w", id, err)
				}
				n.mu.Lock()
				if memo, ok := n.names[id]; ok {
					results[id] = memo
				} else {
					results[id] = NamePending
				}
				n.mu.Unlock()
				return
			}
			results[id] = name
		}(id)
	}
	wg.Wait()

	return results, firstErr
}

func employeePath(id int64) string {
	return fmt.Sprintf("/employees/%d", id)
}
