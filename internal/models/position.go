package models

import "time"

// Position is a single reconstructed GPS fix.
type Position struct {
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Altitude  float64   `json:"altitude"` // meters
	Timestamp time.Time `json:"timestamp"` // UTC
	Heading   float64   `json:"heading"` // degrees, true track
	Speed     float64   `json:"speed"`   // km/h
	Is3D      bool      `json:"is3d"`
	HDOP      float64   `json:"hdop"`
	VDOP      float64   `json:"vdop"`
	PDOP      float64   `json:"pdop"`

	// NoCourse is set for positions read from sources without heading and
	// speed data (GPX). Heading and Speed are stored as NULL then.
	NoCourse bool `json:"-"`
}

// Period is a time window of stored positions.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IngestResult describes one ingest call
type IngestResult struct {
	BatchID string `json:"batchId"`
	Device  string `json:"device"`
	Saved   int    `json:"saved"`
}
