package deps

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestCheckRunsInOrder(t *testing.T) {
	var order []string
	released := 0
	dep := func(name string) Dependency {
		return Dependency{
			Name:    name,
			Check:   func() error { order = append(order, name); return nil },
			Release: func() error { released++; return nil },
		}
	}

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	set, err := Check(context.Background(), log, []Dependency{dep("onnxruntime"), dep("imaging")})
	require.NoError(t, err)
	assert.Equal(t, []string{"onnxruntime", "imaging"}, order)
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "onnxruntime imported successfully", hook.AllEntries()[0].Message)

	assert.NoError(t, set.Release())
	assert.Equal(t, 2, released)
}

func TestCheckStopsAtFirstFailure(t *testing.T) {
	released := []string{}
	calledLast := false
	list := []Dependency{
		{
			Name:    "first",
			Check:   func() error { return nil },
			Release: func() error { released = append(released, "first"); return nil },
		},
		{
			Name:  "onnxruntime",
			Check: func() error { return errors.New("libonnxruntime.so: cannot open shared object file") },
		},
		{
			Name:  "last",
			Check: func() error { calledLast = true; return nil },
		},
	}

	_, err := Check(context.Background(), quietLogger(), list)
	require.Error(t, err)

	checkErr, ok := err.(*CheckError)
	require.True(t, ok)
	assert.Equal(t, "onnxruntime", checkErr.Name)
	assert.Equal(t, "libonnxruntime.so: cannot open shared object file", errors.Cause(err).Error())
	assert.False(t, calledLast)
	assert.Equal(t, []string{"first"}, released)
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Check(ctx, quietLogger(), []Dependency{ImageDecoders()})
	assert.Equal(t, context.Canceled, err)
}

func TestImageDecoders(t *testing.T) {
	dep := ImageDecoders()
	assert.Equal(t, "imaging", dep.Name)
	assert.NoError(t, dep.Check())
	assert.Nil(t, dep.Release)
}

func TestDecodeProbeRejectsGarbage(t *testing.T) {
	assert.Error(t, decodeProbe(bytes.NewReader([]byte("not a png"))))
}

func TestONNXRuntimeDescriptor(t *testing.T) {
	dep := ONNXRuntime("/opt/onnxruntime/lib/libonnxruntime.so")
	assert.Equal(t, "onnxruntime", dep.Name)
	assert.NotNil(t, dep.Check)
	assert.NotNil(t, dep.Release)
}
