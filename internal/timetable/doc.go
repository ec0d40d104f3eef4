// Package timetable plans the frames and the map and video outputs of one
// product from the input files available in the metadata store, and groups
// frames by the set of input files feeding them.
package timetable
