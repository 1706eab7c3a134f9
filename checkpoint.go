package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

// ===========================================================================
// CHECKPOINTS
// ===========================================================================
//
// A checkpoint is the whole TrainingState: every parameter, the learning
// rate and the step counter. It lives in a single bolt file so that a save
// is one transaction; a crash mid-save leaves the previous checkpoint intact.
//
// Layout of bucket "checkpoint":
//
//   meta            JSON {step, learning_rate, shapes{name: [rows, cols]}}
//   param/<name>    little-endian float64 dump of the parameter
//
// Adam moments are not stored; a restored run restarts them from zero.
//
// ===========================================================================

// CheckpointFile is the file name of a checkpoint inside the output dir.
const CheckpointFile = "checkpoint.db"

var (
	checkpointBucket = []byte("checkpoint")
	metaKey          = []byte("meta")
)

// ErrIncompatibleCheckpoint indicates a checkpoint whose parameters do not
// match the model being restored into.
var ErrIncompatibleCheckpoint = errors.New("checkpoint: incompatible with model")

// CheckpointStore persists and restores a TrainingState as one unit.
type CheckpointStore interface {
	// Restore loads the stored state into s. It returns false, and leaves
	// s untouched, when no checkpoint exists.
	Restore(s *TrainingState) (bool, error)
	// Save writes s atomically.
	Save(s *TrainingState) error
}

// checkpointMeta is the JSON header of a checkpoint.
type checkpointMeta struct {
	Step         int64             `json:"step"`
	LearningRate float64           `json:"learning_rate"`
	Shapes       map[string][2]int `json:"shapes"`
	SavedAt      time.Time         `json:"saved_at"`
}

// BoltStore keeps checkpoints in <dir>/checkpoint.db.
type BoltStore struct {
	dir string
}

// NewBoltStore creates a store rooted at dir. Nothing is touched on disk
// until Save or Restore.
func NewBoltStore(dir string) *BoltStore {
	return &BoltStore{dir: dir}
}

// Path returns the checkpoint file path.
func (b *BoltStore) Path() string {
	return filepath.Join(b.dir, CheckpointFile)
}

func (b *BoltStore) open(readOnly bool) (*bolt.DB, error) {
	return bolt.Open(b.Path(), 0600, &bolt.Options{Timeout: 5 * time.Second, ReadOnly: readOnly})
}

// Save implements CheckpointStore.
func (b *BoltStore) Save(s *TrainingState) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("checkpoint: failed to create %s: %w", b.dir, err)
	}
	db, err := b.open(false)
	if err != nil {
		return fmt.Errorf("checkpoint: failed to open %s: %w", b.Path(), err)
	}
	defer db.Close()

	params := s.Model.Params()
	meta := checkpointMeta{
		Step:         s.Step,
		LearningRate: s.LearningRate,
		Shapes:       make(map[string][2]int, len(params)),
		SavedAt:      time.Now().UTC(),
	}
	for _, p := range params {
		r, c := p.Dims()
		meta.Shapes[p.Name] = [2]int{r, c}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("checkpoint: failed to marshal meta: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		// Replace the previous checkpoint wholesale.
		if tx.Bucket(checkpointBucket) != nil {
			if err := tx.DeleteBucket(checkpointBucket); err != nil {
				return err
			}
		}
		bucket, err := tx.CreateBucket(checkpointBucket)
		if err != nil {
			return err
		}
		if err := bucket.Put(metaKey, metaJSON); err != nil {
			return err
		}
		for _, p := range params {
			var buf bytes.Buffer
			if err := binary.Write(&buf, binary.LittleEndian, raw(p.Value)); err != nil {
				return fmt.Errorf("encode %s: %w", p.Name, err)
			}
			if err := bucket.Put(paramKey(p.Name), buf.Bytes()); err != nil {
				return fmt.Errorf("put %s: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("checkpoint: save failed: %w", err)
	}
	return nil
}

// Restore implements CheckpointStore. The model inside s must already have
// the shapes of the stored parameters; a mismatch is an error, not a
// partial restore.
func (b *BoltStore) Restore(s *TrainingState) (bool, error) {
	if _, err := os.Stat(b.Path()); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("checkpoint: %w", err)
	}

	db, err := b.open(true)
	if err != nil {
		return false, fmt.Errorf("checkpoint: failed to open %s: %w", b.Path(), err)
	}
	defer db.Close()

	var (
		found  bool
		meta   checkpointMeta
		params = s.Model.Params()
		values = make(map[*Param][]float64, len(params))
	)
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(checkpointBucket)
		if bucket == nil {
			return nil
		}
		found = true

		metaJSON := bucket.Get(metaKey)
		if metaJSON == nil {
			return errors.New("missing meta")
		}
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return fmt.Errorf("corrupt meta: %w", err)
		}
		if len(meta.Shapes) != len(params) {
			return fmt.Errorf("%w: stored %d parameters, model has %d", ErrIncompatibleCheckpoint, len(meta.Shapes), len(params))
		}

		// Decode everything before touching the model.
		for _, p := range params {
			r, c := p.Dims()
			shape, ok := meta.Shapes[p.Name]
			if !ok {
				return fmt.Errorf("%w: missing parameter %s", ErrIncompatibleCheckpoint, p.Name)
			}
			if shape != [2]int{r, c} {
				return fmt.Errorf("%w: %s is %v, model wants [%d %d]", ErrIncompatibleCheckpoint, p.Name, shape, r, c)
			}
			blob := bucket.Get(paramKey(p.Name))
			if len(blob) != 8*r*c {
				return fmt.Errorf("corrupt parameter %s: %d bytes, want %d", p.Name, len(blob), 8*r*c)
			}
			data := make([]float64, r*c)
			if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, data); err != nil {
				return fmt.Errorf("decode %s: %w", p.Name, err)
			}
			values[p] = data
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checkpoint: restore failed: %w", err)
	}
	if !found {
		return false, nil
	}

	for p, data := range values {
		copy(raw(p.Value), data)
	}
	s.Step = meta.Step
	s.LearningRate = meta.LearningRate
	return true, nil
}

func paramKey(name string) []byte {
	return []byte("param/" + name)
}
