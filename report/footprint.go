package report

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kwv/icp3d/icp"
)

// FootprintFeatureCollection builds a GeoJSON FeatureCollection describing a
// point set's XY footprint (as a MultiPoint feature) and, if pairs is
// non-empty, the surviving correspondences from the final iteration (as
// LineString features connecting each pair's two points). This generalizes
// mesh/geojson.go + mesh/geojson_merge.go's polygon/linestring export from
// vacuum-map floor/wall layers to point-cloud alignment footprints, using
// orb's native geometry+feature types directly instead of the teacher's
// hand-rolled JSON schema.
//
// Z is dropped: GeoJSON's coordinate model is 2D-native, so a point set's
// footprint is its projection onto the XY plane, matching how the teacher's
// vacuum maps (already 2D) were exported.
//
// icp.AlignAuto's facade signature has no channel back to the caller for
// the final correspondence list, so the CLI always calls this with a nil
// pairs and the correspondence LineStrings below go unused in practice;
// the parameter exists for callers that hold a correspondence list of
// their own.
func FootprintFeatureCollection(setID string, points []r3.Vector, pairs []icp.PtPair) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(points) > 0 {
		mp := make(orb.MultiPoint, len(points))
		for i, p := range points {
			mp[i] = orb.Point{p.X, p.Y}
		}
		f := geojson.NewFeature(mp)
		f.Properties["setId"] = setID
		f.Properties["role"] = "footprint"
		fc.Append(f)
	}

	for _, pair := range pairs {
		ls := orb.LineString{
			orb.Point{pair.P1.X, pair.P1.Y},
			orb.Point{pair.P2.X, pair.P2.Y},
		}
		f := geojson.NewFeature(ls)
		f.Properties["setId"] = setID
		f.Properties["role"] = "correspondence"
		fc.Append(f)
	}

	return fc
}

// MarshalFootprint renders the feature collection as indented JSON, the
// on-disk format the CLI writes alongside the convergence chart.
func MarshalFootprint(fc *geojson.FeatureCollection) ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
