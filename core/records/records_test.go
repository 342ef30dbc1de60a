package records

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadPatientData(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, IdentityFile, `{"P1": {"name": "Ayla Demir", "dob": "1984-02-11"}}`)
	writeFixture(t, dir, MedicalFile, `{"P1": {"bloodType": "A+", "labs": [{"name": "CBC", "images": ["/uploads/redacted/cbc_redacted.jpg"]}], "expiresAt": null}}`)

	data, err := Load(NewFileStore(dir), "P1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Ayla Demir", "dob": "1984-02-11"}`, string(data.Identity))
	assert.Contains(t, string(data.Medical), "CBC")
}

func TestUnknownPatientYieldsEmptyObjects(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, IdentityFile, `{"P1": {}}`)

	data, err := Load(NewFileStore(dir), "P9")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data.Identity))
	assert.JSONEq(t, `{}`, string(data.Medical))
}

func TestMedicalRecordFailsSchema(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, MedicalFile, `{"P1": {"labs": "not-a-list"}}`)

	_, err := NewFileStore(dir).Medical("P1")
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCorruptFileIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, IdentityFile, `{"P1": `)

	_, err := NewFileStore(dir).Identity("P1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestValidateMedical(t *testing.T) {
	assert.NoError(t, ValidateMedical(json.RawMessage(`{"allergies": ["penicillin"]}`)))
	assert.ErrorIs(t, ValidateMedical(json.RawMessage(`{"allergies": "penicillin"}`)), ErrInvalidRecord)
	assert.ErrorIs(t, ValidateMedical(json.RawMessage(`[]`)), ErrInvalidRecord)
}
