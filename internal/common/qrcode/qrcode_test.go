package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_PNG(t *testing.T) {
	data, err := NewGenerator(WithSize(128)).PNG("R202610150001")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestGenerator_InvalidContent(t *testing.T) {
	g := NewGenerator()

	_, err := g.PNG("")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = g.GenerateDataURL(strings.Repeat("x", maxContentLen+1))
	assert.ErrorIs(t, err, ErrContentTooLong)
}

func TestGenerator_DataURL(t *testing.T) {
	url, err := NewGenerator(WithHighRecovery()).GenerateDataURL("weixin://wxpay/bizpayurl?pr=abc")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, dataURLPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPrefix))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestWithSize_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, 200, NewGenerator(WithSize(0)).size)
}
