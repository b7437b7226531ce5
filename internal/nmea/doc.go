// Package nmea turns a stream of NMEA 0183 sentences into position fixes.
//
// Sentences are decoded with go-nmea, grouped per fix by an Assembler
// (a new group starts at every RMC sentence) and each group is converted
// into a models.Position by BuildPosition. All stages are lazy, single
// pass iterators so a large log file is never held in memory.
package nmea
