package statefile

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

const dismissalsFileName = "dismissals.json"

// Compile-time interface satisfaction check.
var _ driven.DismissalStore = (*DismissalStore)(nil)

// DismissalStore implements driven.DismissalStore on a single JSON file
// holding a map from version string to record.
type DismissalStore struct {
	path string
}

// NewDismissalStore creates a DismissalStore rooted at stateDir.
func NewDismissalStore(stateDir string) *DismissalStore {
	return &DismissalStore{path: filepath.Join(stateDir, dismissalsFileName)}
}

// dismissalsDocument is the on-disk shape of the dismissals file.
type dismissalsDocument struct {
	Versions map[string]dismissalRecord `json:"versions"`
}

type dismissalRecord struct {
	DismissedAt time.Time `json:"dismissed_at"`
	CheckCount  int       `json:"check_count"`
}

func (s *DismissalStore) load() (dismissalsDocument, error) {
	doc := dismissalsDocument{Versions: map[string]dismissalRecord{}}
	if _, err := readJSON(s.path, &doc); err != nil {
		return dismissalsDocument{}, err
	}
	if doc.Versions == nil {
		doc.Versions = map[string]dismissalRecord{}
	}
	return doc, nil
}

func (s *DismissalStore) Get(_ context.Context, version model.Version) (*model.Dismissal, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Versions[version.String()]
	if !ok {
		return nil, nil
	}
	return &model.Dismissal{
		Version:     version,
		DismissedAt: rec.DismissedAt,
		CheckCount:  rec.CheckCount,
	}, nil
}

func (s *DismissalStore) Upsert(_ context.Context, dismissal model.Dismissal) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Versions[dismissal.Version.String()] = dismissalRecord{
		DismissedAt: dismissal.DismissedAt,
		CheckCount:  dismissal.CheckCount,
	}
	return writeJSON(s.path, doc)
}

func (s *DismissalStore) Delete(_ context.Context, version model.Version) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	key := version.String()
	if _, ok := doc.Versions[key]; !ok {
		return nil
	}
	delete(doc.Versions, key)
	return writeJSON(s.path, doc)
}

func (s *DismissalStore) DeleteAll(_ context.Context) error {
	return removeFile(s.path)
}

func (s *DismissalStore) DeleteOlderThan(_ context.Context, version model.Version) error {
	doc, err := s.load()
	if err != nil {
		return err
	}

	changed := false
	for key := range doc.Versions {
		recorded, err := model.ParseVersion(key)
		if err != nil {
			return fmt.Errorf("corrupt dismissal key %q in %s: %w", key, s.path, err)
		}
		if recorded.Compare(version) < 0 {
			delete(doc.Versions, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.path, doc)
}

func (s *DismissalStore) List(_ context.Context) ([]model.Dismissal, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]model.Dismissal, 0, len(doc.Versions))
	for key, rec := range doc.Versions {
		version, err := model.ParseVersion(key)
		if err != nil {
			return nil, fmt.Errorf("corrupt dismissal key %q in %s: %w", key, s.path, err)
		}
		out = append(out, model.Dismissal{
			Version:     version,
			DismissedAt: rec.DismissedAt,
			CheckCount:  rec.CheckCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Version.Compare(out[j].Version); c != 0 {
			return c < 0
		}
		return out[i].Version.String() < out[j].Version.String()
	})
	return out, nil
}
