package story

import (
    "context"
    "errors"
    "time"
)

// ErrRateLimited marks a transient rate-limit failure from a collaborator.
// It is the only failure class Retry will retry; everything else fails fast.
var ErrRateLimited = errors.New("rate limited")

type TemplateProvider interface {
    GenerateTemplate(ctx context.Context, theme string, playerCount int) (*Template, error)
}

type ImageProvider interface {
    GenerateImage(ctx context.Context, prompt string) (string, error)
}

var retryWaits = []time.Duration{0, 15 * time.Second, 30 * time.Second, 60 * time.Second}

// sleep is swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

// Retry runs fn up to four times with increasing waits, but only while the
// failure is rate limiting.
func Retry(ctx context.Context, fn func(ctx context.Context) error) error {
    var err error
    for _, wait := range retryWaits {
        if wait > 0 {
            if serr := sleep(ctx, wait); serr != nil {
                return serr
            }
        }
        err = fn(ctx)
        if err == nil || !errors.Is(err, ErrRateLimited) {
            return err
        }
    }
    return err
}
