// ABOUTME: GPX 1.1 track encoder for trips
// ABOUTME: Deterministic byte output with speed carried as a vendor extension

package gpx

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bradwbu/Trekr/internal/models"
)

// Creator identifies this tool in the gpx root element.
const Creator = "trekr"

// ContentType is the MIME type for GPX documents.
const ContentType = "application/gpx+xml"

// File is the root GPX document structure.
type File struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	NSTrekr string   `xml:"xmlns:trekr,attr"`

	Metadata Metadata `xml:"metadata"`
	Track    Track    `xml:"trk"`
}

// Metadata carries document-level fields.
type Metadata struct {
	Name        string    `xml:"name,omitempty"`
	Description string    `xml:"desc,omitempty"`
	Time        time.Time `xml:"time"`
}

// Track is a single GPX track with one segment per trip.
type Track struct {
	Name        string         `xml:"name,omitempty"`
	Description string         `xml:"desc,omitempty"`
	Segments    []TrackSegment `xml:"trkseg"`
}

// TrackSegment holds the ordered track points.
type TrackSegment struct {
	Points []Point `xml:"trkpt"`
}

// Point is one GPS track point. Elevation is emitted only when the sample
// carried an altitude; reported speed rides in a vendor extension.
type Point struct {
	Lat        float64     `xml:"lat,attr"`
	Lon        float64     `xml:"lon,attr"`
	Elevation  *float64    `xml:"ele,omitempty"`
	Time       time.Time   `xml:"time"`
	Extensions *Extensions `xml:"extensions,omitempty"`
}

// Extensions holds vendor fields on a track point.
type Extensions struct {
	Speed *float64 `xml:"trekr:speed,omitempty"`
}

// Encode serializes a trip as a GPX 1.1 track. The output is deterministic
// for a given trip; a trip with no samples yields a document with zero track
// points rather than an error. Name and description are escaped by the XML
// encoder.
func Encode(trip *models.Trip) ([]byte, error) {
	points := make([]Point, 0, len(trip.Samples))

	ordered := make([]models.Sample, len(trip.Samples))
	copy(ordered, trip.Samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	for _, s := range ordered {
		if models.ValidateCoordinates(s.Latitude, s.Longitude) != nil {
			continue
		}
		p := Point{
			Lat:       s.Latitude,
			Lon:       s.Longitude,
			Elevation: s.Altitude,
			Time:      s.Timestamp.UTC(),
		}
		if s.Speed != nil {
			p.Extensions = &Extensions{Speed: s.Speed}
		}
		points = append(points, p)
	}

	doc := File{
		Version: "1.1",
		Creator: Creator,
		XMLNS:   "http://www.topografix.com/GPX/1/1",
		NSTrekr: "http://trekr.dev/xmlschemas/GpxExtensions/v1",
		Metadata: Metadata{
			Name:        trip.Name,
			Description: trip.Description,
			Time:        trip.StartTime.UTC(),
		},
		Track: Track{
			Name:        trip.Name,
			Description: trip.Description,
			Segments:    []TrackSegment{{Points: points}},
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Filename derives a safe download filename from a trip name, replacing
// runs of non-alphanumeric characters.
func Filename(name string) string {
	base := unsafeFilename.ReplaceAllString(name, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "trip"
	}
	return base + ".gpx"
}
