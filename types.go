package meaning

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/juergengeck/meaningcore/internal/encoding"
	"github.com/juergengeck/meaningcore/pkg/errs"
	"github.com/juergengeck/meaningcore/pkg/model"
	"github.com/juergengeck/meaningcore/pkg/store"
)

// MeaningNode is the persisted embedding: the vector itself, the model
// that produced it, and an optional record of the text it was derived
// from. Its store.Record id is content-addressed over these fields, so
// re-embedding identical text under the same model always resolves to
// the same MeaningNode.
type MeaningNode struct {
	Embedding   []float32
	Model       model.Name
	Dimensions  int
	SourceText  string // empty when the node was indexed from a raw vector
	ContentType string // empty unless SourceText is set
}

// MeaningDimensionValue links a MeaningNode into this dimension: it is
// the record CubeObject entries reference to place an external object
// at a point in meaning space.
type MeaningDimensionValue struct {
	DimensionID   string
	MeaningNodeID string
	CreatedUnixMs int64
}

// dimensionSingleton is the one Dimension record this module ever
// writes, identifying "meaning" among whatever other dimensions the
// surrounding datacube maintains.
type dimensionSingleton struct {
	Name        string
	DataType    string
	Standard    bool
	Shared      bool
	PackageName string
}

const (
	dimensionName        = "meaning"
	dimensionDataType    = "object"
	dimensionPackageName = "github.com/juergengeck/meaningcore"
)

func newDimensionSingleton() dimensionSingleton {
	return dimensionSingleton{
		Name:        dimensionName,
		DataType:    dimensionDataType,
		Standard:    true,
		Shared:      true,
		PackageName: dimensionPackageName,
	}
}

// encodeDimension serializes the dimension singleton in its canonical
// field order: name, data_type, standard, shared, package_name.
func encodeDimension(d dimensionSingleton) []byte {
	var buf bytes.Buffer
	encoding.EncodeString(&buf, d.Name)
	encoding.EncodeString(&buf, d.DataType)
	encoding.EncodeBool(&buf, d.Standard)
	encoding.EncodeBool(&buf, d.Shared)
	encoding.EncodeString(&buf, d.PackageName)
	return buf.Bytes()
}

// encodeMeaningNode serializes n in its canonical field order:
// embedding, model, dimensions, source_text, content_type.
func encodeMeaningNode(n MeaningNode) []byte {
	var buf bytes.Buffer
	encoding.EncodeVector(&buf, n.Embedding)
	encoding.EncodeString(&buf, string(n.Model))
	binary.Write(&buf, binary.LittleEndian, int32(n.Dimensions))
	encoding.EncodeString(&buf, n.SourceText)
	encoding.EncodeString(&buf, n.ContentType)
	return buf.Bytes()
}

func decodeMeaningNode(data []byte) (MeaningNode, error) {
	r := bytes.NewReader(data)
	vec, err := encoding.DecodeVector(r)
	if err != nil {
		return MeaningNode{}, err
	}
	modelName, err := encoding.DecodeString(r)
	if err != nil {
		return MeaningNode{}, err
	}
	var dims int32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return MeaningNode{}, err
	}
	sourceText, err := encoding.DecodeString(r)
	if err != nil {
		return MeaningNode{}, err
	}
	contentType, err := encoding.DecodeString(r)
	if err != nil {
		return MeaningNode{}, err
	}
	return MeaningNode{
		Embedding:   vec,
		Model:       model.Name(modelName),
		Dimensions:  int(dims),
		SourceText:  sourceText,
		ContentType: contentType,
	}, nil
}

// encodeMeaningDimensionValue serializes v in its canonical field
// order: dimension_id, meaning_node_id, created.
func encodeMeaningDimensionValue(v MeaningDimensionValue) []byte {
	var buf bytes.Buffer
	encoding.EncodeString(&buf, v.DimensionID)
	encoding.EncodeString(&buf, v.MeaningNodeID)
	binary.Write(&buf, binary.LittleEndian, v.CreatedUnixMs)
	return buf.Bytes()
}

func decodeMeaningDimensionValue(data []byte) (MeaningDimensionValue, error) {
	r := bytes.NewReader(data)
	dimID, err := encoding.DecodeString(r)
	if err != nil {
		return MeaningDimensionValue{}, err
	}
	nodeID, err := encoding.DecodeString(r)
	if err != nil {
		return MeaningDimensionValue{}, err
	}
	var created int64
	if err := binary.Read(r, binary.LittleEndian, &created); err != nil {
		return MeaningDimensionValue{}, err
	}
	return MeaningDimensionValue{DimensionID: dimID, MeaningNodeID: nodeID, CreatedUnixMs: created}, nil
}

// putMeaningNode persists n and returns its record id.
func putMeaningNode(ctx context.Context, adapter store.Adapter, n MeaningNode) (string, error) {
	id, _, err := adapter.PutUnversioned(ctx, store.Record{Type: store.TypeMeaningNode, Body: encodeMeaningNode(n)})
	if err != nil {
		return "", errs.Wrap("put_meaning_node", fmt.Errorf("%w: %v", errs.ErrStore, err))
	}
	return id, nil
}

// putMeaningDimensionValue persists v, referencing its MeaningNode so
// ReverseMap(meaningNodeID, TypeMeaningDimensionValue) resolves it.
func putMeaningDimensionValue(ctx context.Context, adapter store.Adapter, v MeaningDimensionValue) (string, error) {
	id, _, err := adapter.PutUnversioned(ctx, store.Record{
		Type:       store.TypeMeaningDimensionValue,
		Body:       encodeMeaningDimensionValue(v),
		References: []string{v.MeaningNodeID, v.DimensionID},
	})
	if err != nil {
		return "", errs.Wrap("put_meaning_dimension_value", fmt.Errorf("%w: %v", errs.ErrStore, err))
	}
	return id, nil
}
