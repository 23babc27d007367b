package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Sync synchronizes two or more stores.
// It runs List on all input stores concurrently.
// When a name is found in some but not all stores,
// its file is copied from the first store having it
// to the stores where it's missing.
//
// Files present in more than one store are not compared.
func Sync(ctx context.Context, stores []Store) error {
	if len(stores) < 2 {
		return nil
	}

	var (
		eg, ctx2 = errgroup.WithContext(ctx)
		names    = make([]map[string]bool, len(stores))
	)
	for i, s := range stores {
		i, s := i, s
		names[i] = make(map[string]bool)
		eg.Go(func() error {
			return s.List(ctx2, "", func(name string) error {
				names[i][name] = true
				return nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "listing stores")
	}

	all := make(map[string]struct{})
	for _, m := range names {
		for name := range m {
			all[name] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(all))
	for name := range all {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		var (
			haver   Store
			needers []Store
		)
		for i, s := range stores {
			if names[i][name] {
				if haver == nil {
					haver = s
				}
			} else {
				needers = append(needers, s)
			}
		}
		if len(needers) == 0 {
			continue
		}

		data, err := haver.Get(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "getting %s", name)
		}

		eg, ctx2 := errgroup.WithContext(ctx)
		for _, s := range needers {
			s := s
			eg.Go(func() error {
				return errors.Wrapf(s.Put(ctx2, name, data), "storing %s", name)
			})
		}
		if err = eg.Wait(); err != nil {
			return err
		}
	}

	return nil
}
