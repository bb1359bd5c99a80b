package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lamaai/lama-api/pkg/errors"
)

type appendBody struct {
	Question string `json:"question"`
	Answer   string `json:"answer" validate:"required"`
	Img      string `json:"img,omitempty"`
}

func decode(body string) (appendBody, error) {
	req := httptest.NewRequest(http.MethodPut, "/api/chats/abc", strings.NewReader(body))
	return DecodeJSON[appendBody](httptest.NewRecorder(), req)
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	got, _ := typed.Details().(map[string]string)
	return got
}

func TestDecodeJSONAcceptsValidBody(t *testing.T) {
	got, err := decode(`{"question":"q","answer":"a","img":"/x.png"}`)
	require.NoError(t, err)
	assert.Equal(t, appendBody{Question: "q", Answer: "a", Img: "/x.png"}, got)
}

func TestDecodeJSONReportsMissingFieldsByJSONName(t *testing.T) {
	_, err := decode(`{"question":"q"}`)
	assert.Equal(t, map[string]string{"answer": "is required"}, details(t, err))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	_, err := decode(`{"answer":"a","role":"admin"}`)
	assert.Equal(t, map[string]string{"role": "is not allowed"}, details(t, err))
}

func TestDecodeJSONRejectsWrongTypes(t *testing.T) {
	_, err := decode(`{"answer":42}`)
	assert.Equal(t, map[string]string{"answer": "must be string"}, details(t, err))
}

func TestDecodeJSONRejectsMalformedInput(t *testing.T) {
	for name, body := range map[string]string{
		"empty":    ``,
		"syntax":   `{"answer":`,
		"trailing": `{"answer":"a"}{"answer":"b"}`,
		"array":    `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decode(body)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONEnforcesSizeLimit(t *testing.T) {
	huge := `{"answer":"` + strings.Repeat("a", int(MaxBodyBytes)) + `"}`
	_, err := decode(huge)
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Message(), "exceeds")
}
