package classifier

import (
	"context"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/menta2k/plant-predict/pkg/types"
)

// ONNXOptions binds the graph's input and output tensors
type ONNXOptions struct {
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
}

// ONNXModel is a Model backed by an ONNX Runtime session with
// pre-allocated input and output tensors. The runtime environment must be
// initialised before OpenONNX is called.
type ONNXModel struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	outputShape []int64
}

// OpenONNX loads the model at path
func OpenONNX(path string, opts ONNXOptions) (*ONNXModel, error) {
	if types.ShapeSize(opts.InputShape) == 0 || types.ShapeSize(opts.OutputShape) == 0 {
		return nil, errors.Errorf("invalid tensor shapes in=%v out=%v", opts.InputShape, opts.OutputShape)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(opts.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(opts.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	return &ONNXModel{
		session:     session,
		input:       input,
		output:      output,
		outputShape: append([]int64(nil), opts.OutputShape...),
	}, nil
}

// Predict copies input into the session, runs it and returns a copy of the
// output scores.
func (m *ONNXModel) Predict(ctx context.Context, input *types.Tensor) (*types.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := m.input.GetData()
	if len(input.Data) != len(dst) {
		return nil, errors.Errorf("input has %d values, model expects %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if err := m.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	out := types.NewTensor(m.outputShape...)
	copy(out.Data, m.output.GetData())
	return out, nil
}

// Close releases the session and its tensors
func (m *ONNXModel) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if m.session != nil {
		keep(m.session.Destroy())
	}
	if m.input != nil {
		keep(m.input.Destroy())
	}
	if m.output != nil {
		keep(m.output.Destroy())
	}
	return first
}

// ONNXOpener returns an OpenFunc bound to opts
func ONNXOpener(opts ONNXOptions) OpenFunc {
	return func(path string) (Model, error) {
		m, err := OpenONNX(path, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
