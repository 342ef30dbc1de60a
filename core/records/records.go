// Package records reads patient identity and medical records. The ledger
// never writes here; it only gates who may read.
package records

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/medical_record.json
var medicalSchema string

var (
	ErrInvalidRecord = errors.New("records: invalid record")
	ErrUnavailable   = errors.New("records: store unavailable")
)

const (
	IdentityFile = "identity.json"
	MedicalFile  = "medical.json"
)

// PatientData is the pair returned to an authorized doctor. A patient with
// no entry yields empty objects.
type PatientData struct {
	Identity json.RawMessage `json:"identity"`
	Medical  json.RawMessage `json:"medical"`
}

// Store is the read-only record lookup.
type Store interface {
	Identity(patientID string) (json.RawMessage, error)
	Medical(patientID string) (json.RawMessage, error)
}

var emptyObject = json.RawMessage(`{}`)

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(medicalSchema))
	})
	return schema, schemaErr
}

// ValidateMedical checks a medical record against the embedded schema.
func ValidateMedical(raw json.RawMessage) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("records: load schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
	}
	return nil
}

// FileStore reads identity.json and medical.json from a directory, each a
// JSON object keyed by patient id. Files are re-read on every lookup so
// edits are picked up without a restart.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Identity(patientID string) (json.RawMessage, error) {
	return s.lookup(IdentityFile, patientID)
}

func (s *FileStore) Medical(patientID string) (json.RawMessage, error) {
	raw, err := s.lookup(MedicalFile, patientID)
	if err != nil {
		return nil, err
	}
	if err := ValidateMedical(raw); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	return raw, nil
}

func (s *FileStore) lookup(name, patientID string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return emptyObject, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	rec, ok := all[patientID]
	if !ok {
		return emptyObject, nil
	}
	return rec, nil
}

// Load fetches both records for a patient.
func Load(s Store, patientID string) (PatientData, error) {
	identity, err := s.Identity(patientID)
	if err != nil {
		return PatientData{}, err
	}
	medical, err := s.Medical(patientID)
	if err != nil {
		return PatientData{}, err
	}
	return PatientData{Identity: identity, Medical: medical}, nil
}
