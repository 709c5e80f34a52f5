// Package catalog loads the condition and facility datasets from JSON.
//
// Loading never fails: a missing or unreadable file yields an empty
// catalog whose Status records why, so callers keep serving with
// narrower results.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/facility"
)

// Status describes how a catalog was loaded.
type Status string

const (
	StatusLoaded  Status = "loaded"
	StatusMissing Status = "missing" // file not found, catalog empty
	StatusInvalid Status = "invalid" // file unreadable or malformed, catalog empty
)

// Metadata is the header of the conditions file.
type Metadata struct {
	Version       string `json:"version"`
	TotalDiseases int    `json:"totalDiseases"`
}

// Conditions is the loaded condition catalog.
type Conditions struct {
	Metadata   Metadata
	Conditions []diagnosis.Condition
	Status     Status
	Err        error
	Skipped    int
}

// Degraded reports whether the catalog fell back to empty.
func (c *Conditions) Degraded() bool { return c.Status != StatusLoaded }

type conditionsFile struct {
	Metadata Metadata              `json:"metadata"`
	Diseases []diagnosis.Condition `json:"diseases"`
}

// LoadConditions reads a conditions file. Records without a name are
// dropped.
func LoadConditions(path string, logger zerolog.Logger) *Conditions {
	var f conditionsFile
	status, err := readJSON(path, &f)
	out := &Conditions{Status: status, Err: err, Conditions: []diagnosis.Condition{}}
	if status != StatusLoaded {
		logDegraded(logger, "conditions", path, status, err)
		return out
	}

	out.Metadata = f.Metadata
	for i, c := range f.Diseases {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			logger.Warn().Str("path", path).Int("index", i).Msg("skipping condition without a name")
			out.Skipped++
			continue
		}
		if len(c.Symptoms) == 0 {
			logger.Warn().Str("condition", c.Name).Msg("condition has no symptoms and will never match")
		}
		out.Conditions = append(out.Conditions, c)
	}
	logger.Info().Str("path", path).Int("conditions", len(out.Conditions)).Int("skipped", out.Skipped).Msg("condition catalog loaded")
	return out
}

// Facilities is the loaded facility catalog with its specialization map.
type Facilities struct {
	Facilities      []facility.Facility
	Specializations facility.SpecializationMap
	Status          Status
	Err             error
	Skipped         int
}

// Degraded reports whether the catalog fell back to empty.
func (c *Facilities) Degraded() bool { return c.Status != StatusLoaded }

type facilitiesFile struct {
	Hospitals []facility.Facility        `json:"hospitals"`
	Mapping   facility.SpecializationMap `json:"diseaseSpecializationMapping"`
}

// LoadFacilities reads a facilities file. Records without a name are
// dropped; out-of-range coordinates are kept and treated as unknown
// distance by the locator.
func LoadFacilities(path string, logger zerolog.Logger) *Facilities {
	var f facilitiesFile
	status, err := readJSON(path, &f)
	out := &Facilities{
		Status:          status,
		Err:             err,
		Facilities:      []facility.Facility{},
		Specializations: facility.SpecializationMap{},
	}
	if status != StatusLoaded {
		logDegraded(logger, "facilities", path, status, err)
		return out
	}

	for i, h := range f.Hospitals {
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			logger.Warn().Str("path", path).Int("index", i).Msg("skipping facility without a name")
			out.Skipped++
			continue
		}
		if pos, ok := h.Coordinates(); ok && !pos.Valid() {
			logger.Warn().Str("facility_id", h.ID).Float64("lat", pos.Lat).Float64("lon", pos.Lon).Msg("facility has invalid coordinates")
		}
		out.Facilities = append(out.Facilities, h)
	}
	if f.Mapping != nil {
		out.Specializations = f.Mapping
	}
	logger.Info().Str("path", path).Int("facilities", len(out.Facilities)).Int("mapped_conditions", len(out.Specializations)).Msg("facility catalog loaded")
	return out
}

func readJSON(path string, v any) (Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StatusMissing, err
		}
		return StatusInvalid, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return StatusInvalid, fmt.Errorf("parse %s: %w", path, err)
	}
	return StatusLoaded, nil
}

func logDegraded(logger zerolog.Logger, kind, path string, status Status, err error) {
	logger.Warn().Err(err).Str("catalog", kind).Str("path", path).Str("status", string(status)).Msg("catalog unavailable, serving empty catalog")
}
