// Package store is an embedded metrics backend for running pipemetrics
// without CloudWatch. It implements metrics.Sink and metrics.Lister on top
// of BadgerDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/siqueiraa/pipemetrics/pkg/metrics"
)

const (
	dirMode      = 0o755 // Default directory permissions
	seriesPrefix = "s/"  // s/<namespace hash>/<series hash> -> Descriptor
	pointPrefix  = "p/"  // p/<series hash>/<unix nanos>/<seq> -> Datum
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps every series descriptor and data point written to it.
type Store struct {
	db        *badger.DB
	retention time.Duration
	seq       *badger.Sequence
}

// SeriesStats summarizes the points stored for one series.
type SeriesStats struct {
	Series metrics.Descriptor
	Points int
	Sum    float64
	Last   time.Time
}

// Open opens (or creates) the store at path. Points older than retention
// expire; zero keeps them forever.
func Open(path string, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create store path: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := db.GetSequence([]byte("seq/points"), 100)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[Store] Opened local metrics store at %s", path)
	return &Store{db: db, retention: retention, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}

// Put writes data under namespace in a single transaction.
func (s *Store) Put(_ context.Context, namespace string, data []metrics.Datum) error {
	if len(data) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, d := range data {
			desc := metrics.Descriptor{Namespace: namespace, Name: d.Name, Dimensions: d.Dimensions}
			sh := seriesHash(desc)

			raw, err := json.Marshal(desc)
			if err != nil {
				return err
			}
			// The series entry shares the points' TTL and each Put extends it,
			// so a series stops being listed once its last point expires.
			if err := txn.SetEntry(s.entry(seriesKey(namespace, sh), raw)); err != nil {
				return err
			}

			n, err := s.seq.Next()
			if err != nil {
				return err
			}
			raw, err = json.Marshal(d)
			if err != nil {
				return err
			}
			if err := txn.SetEntry(s.entry(pointKey(sh, d.Timestamp, n), raw)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.retention > 0 {
		e = e.WithTTL(s.retention)
	}
	return e
}

// List yields the series descriptors of namespace in key order.
func (s *Store) List(_ context.Context, namespace string) iter.Seq2[metrics.Descriptor, error] {
	return func(yield func(metrics.Descriptor, error) bool) {
		var stopped bool
		err := s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			p := []byte(fmt.Sprintf("%s%016x/", seriesPrefix, xxhash.Sum64String(namespace)))
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				var desc metrics.Descriptor
				if err := it.Item().Value(func(v []byte) error {
					return json.Unmarshal(v, &desc)
				}); err != nil {
					return err
				}
				if !yield(desc, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(metrics.Descriptor{}, fmt.Errorf("list local series in %s: %w", namespace, err))
		}
	}
}

// Points returns the stored points of one series, oldest first.
func (s *Store) Points(desc metrics.Descriptor) ([]metrics.Datum, error) {
	var out []metrics.Datum
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(fmt.Sprintf("%s%016x/", pointPrefix, seriesHash(desc)))
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var d metrics.Datum
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &d)
			}); err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// Stats summarizes every series of namespace, sorted by series identity.
func (s *Store) Stats(ctx context.Context, namespace string) ([]SeriesStats, error) {
	var stats []SeriesStats
	for desc, err := range s.List(ctx, namespace) {
		if err != nil {
			return nil, err
		}
		points, err := s.Points(desc)
		if err != nil {
			return nil, err
		}

		st := SeriesStats{Series: desc, Points: len(points)}
		for _, p := range points {
			st.Sum += p.Value
			if p.Timestamp.After(st.Last) {
				st.Last = p.Timestamp
			}
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(a, b int) bool {
		return SeriesID(stats[a].Series) < SeriesID(stats[b].Series)
	})
	return stats, nil
}

// SeriesID renders a descriptor as Name{Dim=Value,...} with dimensions in
// their stored order.
func SeriesID(desc metrics.Descriptor) string {
	var b strings.Builder
	b.WriteString(string(desc.Name))
	b.WriteByte('{')
	for i, d := range desc.Dimensions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(d.Name)
		b.WriteByte('=')
		b.WriteString(d.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func seriesHash(desc metrics.Descriptor) uint64 {
	return xxhash.Sum64String(desc.Namespace + "\x00" + SeriesID(desc))
}

func seriesKey(namespace string, sh uint64) []byte {
	return fmt.Appendf(nil, "%s%016x/%016x", seriesPrefix, xxhash.Sum64String(namespace), sh)
}

// pointKey sorts points of a series by time, then by write order.
func pointKey(sh uint64, ts time.Time, n uint64) []byte {
	return fmt.Appendf(nil, "%s%016x/%020d/%016x", pointPrefix, sh, ts.UnixNano(), n)
}
