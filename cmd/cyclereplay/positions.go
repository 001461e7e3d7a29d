package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"backend-frimining/internal/cycle"
	"backend-frimining/internal/shared/geo"
)

// readPositions parses timestamp,lat,lng rows. A leading header row is
// skipped.
func readPositions(r io.Reader) ([]cycle.Position, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var out []cycle.Position
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(record[0], "timestamp") {
			continue
		}
		pos, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("positions line %d: %w", line, err)
		}
		out = append(out, pos)
	}
}

func parseRecord(record []string) (cycle.Position, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return cycle.Position{}, fmt.Errorf("timestamp: %w", err)
	}
	lat, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return cycle.Position{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return cycle.Position{}, fmt.Errorf("lng: %w", err)
	}
	if !geo.ValidCoordinate(lat, lng) {
		return cycle.Position{}, fmt.Errorf("coordinate %v,%v out of range", lat, lng)
	}
	return cycle.Position{Lat: lat, Lng: lng, Timestamp: ts}, nil
}
