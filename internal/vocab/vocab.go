// Package vocab defines the closed vocabularies shared across the pipeline:
// billing types, ingestion source channels, and canonical priorities.
// Modality, specialty, and category vocabularies are externally configured
// reference data and are validated against the registry at rule time.
package vocab

import (
	"fmt"
	"strings"
)

// BillingType classifies how an exam is invoiced.
type BillingType string

const (
	// BillingContracted is a contracted client, invoiced (CO-FT).
	BillingContracted BillingType = "CO-FT"
	// BillingNonContractedInvoiced is a non-contracted client, invoiced (NC-FT).
	BillingNonContractedInvoiced BillingType = "NC-FT"
	// BillingNonContractedUnbilled is a non-contracted client, not invoiced (NC-NF).
	BillingNonContractedUnbilled BillingType = "NC-NF"
)

// Valid reports whether the billing type is one of the three known values.
func (b BillingType) Valid() bool {
	switch b {
	case BillingContracted, BillingNonContractedInvoiced, BillingNonContractedUnbilled:
		return true
	}
	return false
}

// SourceType identifies which of the five ingestion channels produced a record.
type SourceType string

const (
	SourceVolumetry      SourceType = "volumetria"
	SourceVolumetryRetro SourceType = "volumetria_retroativo"
	SourceOnCall         SourceType = "plantao"
	SourceOnCallRetro    SourceType = "plantao_retroativo"
	SourceManual         SourceType = "avulso"
)

// SourceTypes lists every ingestion channel.
var SourceTypes = []SourceType{
	SourceVolumetry,
	SourceVolumetryRetro,
	SourceOnCall,
	SourceOnCallRetro,
	SourceManual,
}

// Valid reports whether the source type is one of the five known channels.
func (s SourceType) Valid() bool {
	for _, known := range SourceTypes {
		if s == known {
			return true
		}
	}
	return false
}

// Retroactive reports whether the channel re-delivers historical records.
// Only retroactive channels are subject to the exclusion window filter.
func (s SourceType) Retroactive() bool {
	return s == SourceVolumetryRetro || s == SourceOnCallRetro
}

// ParseSourceType validates a raw source type string.
func ParseSourceType(raw string) (SourceType, error) {
	s := SourceType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range SourceTypes {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown source type %q", raw)
}

// Priority is the canonical exam priority.
type Priority string

const (
	PriorityRoutine   Priority = "ROTINA"
	PriorityUrgent    Priority = "URGENTE"
	PriorityEmergency Priority = "EMERGENCIA"
	PriorityOnCall    Priority = "PLANTAO"
	PriorityInpatient Priority = "INTERNADO"
)

// Priorities lists every canonical priority.
var Priorities = []Priority{
	PriorityRoutine,
	PriorityUrgent,
	PriorityEmergency,
	PriorityOnCall,
	PriorityInpatient,
}

// Valid reports whether the priority is canonical.
func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}
