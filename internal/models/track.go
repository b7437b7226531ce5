package models

import "time"

// Track is a named, time-bounded group of positions of one device.
type Track struct {
	Trip   string    `json:"trip" binding:"required"`
	Name   string    `json:"name" binding:"required"`
	Device string    `json:"device"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

// TrackSummary holds statistics of a track computed from its positions.
type TrackSummary struct {
	Trip     string    `json:"trip"`
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration float64   `json:"duration"` // seconds
	Distance float64   `json:"distance"` // meters, simplified path
	MaxSpeed float64   `json:"maxSpeed"` // km/h
}

// TrackPositions holds the coordinates of a track for map rendering.
type TrackPositions struct {
	Trip      string       `json:"trip"`
	Name      string       `json:"name"`
	Start     time.Time    `json:"start"`
	Extent    [4]float64   `json:"extent"` // min x, min y, max x, max y
	Positions [][2]float64 `json:"positions"`
}
