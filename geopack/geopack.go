package geopack

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// Ext is the extension carried by packaged survey containers.
const Ext = ".gpz"

const (
	metaMember     = "meta.json"
	featuresMember = "features.json"
)

// identifierColumns lists stable identifier columns in priority order. Row
// order in re-converted containers is not deterministic, so comparisons sort
// rows by the first of these present in the dataset.
var identifierColumns = []string{"fid", "id", "objectid", "gml_id", "feature_id", "name"}

// Feature is one row of a dataset: a geometry value plus attribute values.
type Feature struct {
	Geometry   any
	Properties map[string]any
}

// Dataset is the decoded content of one packaged container.
type Dataset struct {
	Path     string
	crs      string
	bounds   [4]float64
	columns  []string
	features []Feature
}

// Open decodes the container at path. Corrupt or incomplete containers
// return errors; Open never panics on malformed input.
func Open(path string) (*Dataset, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	defer r.Close()

	meta, err := decodeMember(&r.Reader, metaMember)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	feats, err := decodeMember(&r.Reader, featuresMember)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	d := &Dataset{Path: path}
	if err := d.readMeta(meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := d.readFeatures(feats); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func decodeMember(r *zip.Reader, name string) (map[string]any, error) {
	f, err := r.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingMember, name)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	v, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an object", ErrMalformedContainer, name)
	}
	return m, nil
}

func (d *Dataset) readMeta(m map[string]any) error {
	crs, _ := m["crs"].(string)
	if crs == "" {
		return fmt.Errorf("%w: missing crs", ErrMalformedContainer)
	}
	d.crs = crs

	bbox, ok := m["bbox"].([]any)
	if !ok || len(bbox) != 4 {
		return fmt.Errorf("%w: bbox must hold four numbers", ErrMalformedContainer)
	}
	for i, v := range bbox {
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: bbox[%d] is not a number", ErrMalformedContainer, i)
		}
		d.bounds[i] = f
	}
	return nil
}

func (d *Dataset) readFeatures(m map[string]any) error {
	cols, ok := m["columns"].([]any)
	if !ok {
		return fmt.Errorf("%w: missing columns", ErrMalformedContainer)
	}
	for i, c := range cols {
		s, ok := c.(string)
		if !ok {
			return fmt.Errorf("%w: columns[%d] is not a string", ErrMalformedContainer, i)
		}
		d.columns = append(d.columns, s)
	}
	sort.Strings(d.columns)

	feats, ok := m["features"].([]any)
	if !ok {
		return fmt.Errorf("%w: missing features", ErrMalformedContainer)
	}
	d.features = make([]Feature, 0, len(feats))
	for i, f := range feats {
		fm, ok := f.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: features[%d] is not an object", ErrMalformedContainer, i)
		}
		props, _ := fm["properties"].(map[string]any)
		d.features = append(d.features, Feature{
			Geometry:   fm["geometry"],
			Properties: props,
		})
	}
	return nil
}

func (d *Dataset) RowCount() int { return len(d.features) }

func (d *Dataset) CRS() string { return d.crs }

// Bounds returns the spatial extent as [minx, miny, maxx, maxy].
func (d *Dataset) Bounds() [4]float64 { return d.bounds }

// Columns returns the attribute column names in sorted order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

func (d *Dataset) Feature(i int) Feature { return d.features[i] }

// SortKey returns the highest-priority stable identifier column present in
// the dataset, or "" when it carries none.
func (d *Dataset) SortKey() string {
	for _, want := range identifierColumns {
		for _, col := range d.columns {
			if strings.EqualFold(col, want) {
				return col
			}
		}
	}
	return ""
}

// CanonicalGeometry renders the geometry in canonical text form: object keys
// sorted, numbers in standard notation. Two geometries decoded from
// differently ordered or formatted JSON produce the same string exactly when
// their decoded values are equal.
func (f Feature) CanonicalGeometry() string {
	if f.Geometry == nil {
		return ""
	}
	return CanonicalValue(f.Geometry)
}

// Value returns the attribute value for col. ok is false when the row
// carries no value for it: the key is absent or the value is JSON null,
// whichever way the producing run chose to encode "no value".
func (f Feature) Value(col string) (any, bool) {
	if f.Properties == nil {
		return nil, false
	}
	v, present := f.Properties[col]
	if !present || v == nil {
		return nil, false
	}
	return v, true
}

// CanonicalValue renders any decoded JSON value in canonical text form.
func CanonicalValue(v any) string {
	return oj.JSON(v, &oj.Options{Sort: true})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
