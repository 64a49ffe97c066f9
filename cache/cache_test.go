package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStoreGet(t *testing.T) {
	ctx := context.Background()

	Convey("Get", t, func() {
		Convey("Should rebuild on first access and hit afterwards", func() {
			s := New[string](time.Minute)
			var builds int

			rebuild := func(context.Context) (string, error) {
				builds++
				return "value", nil
			}

			v, stale, err := s.Get(ctx, "k", rebuild)
			So(err, ShouldBeNil)
			So(stale, ShouldBeFalse)
			So(v, ShouldEqual, "value")

			_, _, _ = s.Get(ctx, "k", rebuild)
			So(builds, ShouldEqual, 1)

			hits, misses := s.Metrics()
			So(hits, ShouldEqual, 1)
			So(misses, ShouldEqual, 1)
		})

		Convey("Should serve the previous value stale when rebuild fails", func() {
			s := New[string](time.Nanosecond)

			_, _, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "old", nil
			})
			So(err, ShouldBeNil)
			time.Sleep(time.Millisecond)

			v, stale, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "", errors.New("upstream down")
			})
			So(err, ShouldBeNil)
			So(stale, ShouldBeTrue)
			So(v, ShouldEqual, "old")
		})

		Convey("Should propagate the error when no previous value exists", func() {
			s := New[string](time.Minute)

			_, _, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "", errors.New("upstream down")
			})
			So(err, ShouldNotBeNil)
		})

		Convey("Concurrent readers of an expired key should share one rebuild", func() {
			s := New[int](time.Minute)
			var builds int
			var mu sync.Mutex

			rebuild := func(context.Context) (int, error) {
				mu.Lock()
				builds++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			}

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					v, _, err := s.Get(ctx, "k", rebuild)
					if err != nil || v != 42 {
						t.Error("unexpected result")
					}
				}()
			}
			wg.Wait()

			So(builds, ShouldEqual, 1)
		})
	})
}

func TestStoreInvalidate(t *testing.T) {
	ctx := context.Background()

	Convey("Invalidate", t, func() {
		s := New[string](time.Hour)
		var builds int
		rebuild := func(context.Context) (string, error) {
			builds++
			return "v", nil
		}

		_, _, _ = s.Get(ctx, "k", rebuild)
		s.Invalidate("k")
		_, _, _ = s.Get(ctx, "k", rebuild)

		Convey("Should force the next Get to rebuild", func() {
			So(builds, ShouldEqual, 2)
		})

		Convey("Should keep the old value available for stale fallback", func() {
			s.Invalidate("k")
			v, stale, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "", errors.New("down")
			})
			So(err, ShouldBeNil)
			So(stale, ShouldBeTrue)
			So(v, ShouldEqual, "v")
		})
	})
}

func TestStoreSeed(t *testing.T) {
	ctx := context.Background()

	Convey("Seed", t, func() {
		s := New[string](time.Minute)

		Convey("A seeded live entry should be served without rebuild", func() {
			s.Seed("k", "persisted", time.Now())
			v, stale, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "", errors.New("must not run")
			})
			So(err, ShouldBeNil)
			So(stale, ShouldBeFalse)
			So(v, ShouldEqual, "persisted")
		})

		Convey("An expired seed should act as stale fallback", func() {
			s.Seed("k", "persisted", time.Now().Add(-time.Hour))
			v, stale, err := s.Get(ctx, "k", func(context.Context) (string, error) {
				return "", errors.New("down")
			})
			So(err, ShouldBeNil)
			So(stale, ShouldBeTrue)
			So(v, ShouldEqual, "persisted")
		})
	})
}

func TestStoreRefresh(t *testing.T) {
	ctx := context.Background()

	Convey("Refresh", t, func() {
		s := New[string](time.Hour)
		var builds int
		rebuild := func(context.Context) (string, error) {
			builds++
			return "v", nil
		}

		_, _, _ = s.Get(ctx, "k", rebuild)
		_, _, err := s.Refresh(ctx, "k", rebuild)

		So(err, ShouldBeNil)
		So(builds, ShouldEqual, 2)
	})
}
