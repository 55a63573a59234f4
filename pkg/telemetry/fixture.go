// Package telemetry provides the local fixture telemetry source: per-item
// FIT files on disk decoded into GPS point streams. It serves demo mode and
// offline development, where the pipeline runs without the remote API.
package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"

	shared "github.com/tracematch/sync-engine/pkg"
)

// FixtureSource resolves item ids to <dir>/<id>.fit and decodes the GPS
// records. The credential is ignored.
type FixtureSource struct {
	dir string
}

var _ shared.TelemetrySource = (*FixtureSource)(nil)

func NewFixtureSource(dir string) *FixtureSource {
	return &FixtureSource{dir: dir}
}

// ListItemIDs returns the ids of every fixture present, in directory order.
func (s *FixtureSource) ListItemIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".fit") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".fit"))
	}
	return ids, nil
}

func (s *FixtureSource) FetchTelemetry(ctx context.Context, _ string, id string) (*shared.TelemetryPayload, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".fit"))
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", id, err)
	}
	points, err := DecodePoints(data)
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", id, err)
	}
	return &shared.TelemetryPayload{Points: points}, nil
}

// DecodePoints extracts the GPS track from a FIT file's record messages.
// Records without a position (indoor segments, GPS dropouts) are skipped.
func DecodePoints(data []byte) ([]shared.Point, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty FIT data")
	}

	fitDec := decoder.New(bytes.NewReader(data))

	var points []shared.Point
	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIT file: %w", err)
		}

		for _, msg := range fitData.Messages {
			if msg.Num != typedef.MesgNumRecord {
				continue
			}
			record := mesgdef.NewRecord(&msg)
			// 0x7FFFFFFF marks an absent position in FIT semicircles.
			if record.PositionLat == 0x7FFFFFFF || record.PositionLong == 0x7FFFFFFF {
				continue
			}
			const semicircleConst = 11930464.7111 // 2^31 / 180
			points = append(points, shared.Point{
				Lat: float64(record.PositionLat) / semicircleConst,
				Lng: float64(record.PositionLong) / semicircleConst,
			})
		}
	}

	return points, nil
}
