package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Version is the key scheme written by Save. Documents carrying any other
// version are ignored on load.
const Version = 1

// ErrNoBackend is returned by Save on a memory-only store.
var ErrNoBackend = errors.New("state: no storage backend")

// Key identifies one task. Folder is the base name of the task directory.
type Key struct {
	URL    string `json:"url"`
	Date   string `json:"date"`
	Folder string `json:"folder"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s (%s)", k.URL, k.Date, k.Folder)
}

// Record is the outcome of the most recent attempt at a task.
type Record struct {
	Success     bool      `json:"success"`
	CompletedAt time.Time `json:"completed_at"`
	Outcome     string    `json:"outcome,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	ExitCode    int       `json:"exit_code"`
	RunID       string    `json:"run_id,omitempty"`
}

// Entry pairs a key with its record.
type Entry struct {
	Key
	Record
}

// document is the serialized form. Tasks are a list so keys are never
// concatenated into strings.
type document struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Tasks     []Entry   `json:"tasks"`
}

// Options configures a Store.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*Options)

// WithLogger sets the logger used for load and save warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// Store maps task keys to outcome records. It is safe for concurrent use.
type Store struct {
	bucket *blob.Bucket
	key    string
	owned  bool
	opts   Options

	mu      sync.Mutex
	records map[Key]Record
}

func newStore(bucket *blob.Bucket, key string, options []Option) *Store {
	opts := Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    time.Now,
	}
	for _, opt := range options {
		opt(&opts)
	}
	return &Store{
		bucket:  bucket,
		key:     key,
		opts:    opts,
		records: make(map[Key]Record),
	}
}

// Memory returns an empty store that is never persisted.
func Memory(options ...Option) *Store {
	return newStore(nil, "", options)
}

// Load reads the document at key from bucket. It never fails: an absent
// document yields an empty store, and an unreadable, corrupt or foreign
// document yields an empty store plus a warning. A corrupt document is
// copied to key+".corrupt" before it can be overwritten by the next Save.
func Load(ctx context.Context, bucket *blob.Bucket, key string, options ...Option) *Store {
	s := newStore(bucket, key, options)
	log := s.opts.Logger

	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		if isNotExist(err) {
			log.Debug("no previous state", "key", key)
			return s
		}
		log.Warn("state unreadable, starting empty", "key", key, "error", err)
		return s
	}

	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		log.Warn("state corrupt, starting empty", "key", key, "error", err)
		s.keepCorrupt(ctx)
		return s
	}
	if doc.Version != Version {
		log.Warn("state has unsupported version, starting empty", "key", key, "version", doc.Version, "supported", Version)
		s.keepCorrupt(ctx)
		return s
	}

	for _, e := range doc.Tasks {
		s.records[e.Key] = e.Record
	}
	log.Debug("state loaded", "key", key, "records", len(s.records))
	return s
}

func (s *Store) keepCorrupt(ctx context.Context) {
	dst := s.key + ".corrupt"
	if err := s.bucket.Copy(ctx, dst, s.key, nil); err != nil {
		s.opts.Logger.Warn("could not preserve corrupt state", "key", dst, "error", err)
		return
	}
	s.opts.Logger.Warn("previous state preserved", "key", dst)
}

// Close releases the bucket if the store opened it.
func (s *Store) Close() error {
	if s.owned && s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// IsCompleted reports whether k has a record with success set. Failed
// attempts are not completed.
func (s *Store) IsCompleted(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	return ok && r.Success
}

// Get returns the record for k.
func (s *Store) Get(k Key) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	return r, ok
}

// MarkOption annotates a record written by MarkCompleted.
type MarkOption func(*Record)

// WithOutcome records the outcome kind, e.g. "timeout".
func WithOutcome(kind string) MarkOption {
	return func(r *Record) { r.Outcome = kind }
}

// WithDuration records how long the attempt took.
func WithDuration(d time.Duration) MarkOption {
	return func(r *Record) { r.DurationMS = d.Milliseconds() }
}

// WithExitCode records the process exit status.
func WithExitCode(code int) MarkOption {
	return func(r *Record) { r.ExitCode = code }
}

// WithRunID records which run produced the record.
func WithRunID(id string) MarkOption {
	return func(r *Record) { r.RunID = id }
}

// MarkCompleted inserts or overwrites the record for k, stamped with the
// current time.
func (s *Store) MarkCompleted(k Key, success bool, opts ...MarkOption) {
	r := Record{
		Success:     success,
		CompletedAt: s.opts.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&r)
	}

	s.mu.Lock()
	s.records[k] = r
	s.mu.Unlock()
}

// Entries returns all records sorted by key.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	entries := make([]Entry, 0, len(s.records))
	for k, r := range s.records {
		entries = append(entries, Entry{Key: k, Record: r})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Folder < b.Folder
	})
	return entries
}

// Save writes the full document. The backend replaces the object in one
// step, so readers see either the old or the new document. Callers treat
// errors as warnings and keep using the in-memory records.
func (s *Store) Save(ctx context.Context) error {
	if s.bucket == nil {
		return ErrNoBackend
	}

	doc := document{
		Version:   Version,
		UpdatedAt: s.opts.Now().UTC(),
		Tasks:     s.Entries(),
	}
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	err = s.bucket.WriteAll(ctx, s.key, data, &blob.WriterOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("state: write %s: %w", s.key, err)
	}
	return nil
}

// isNotExist returns true if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
