package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

func TestDecodeAction(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		raw  string
		want schemas.Action
	}{
		{"Click", `{"type":"click","x":10,"y":20,"button":"right"}`, schemas.ClickAction{X: 10, Y: 20, Button: schemas.ButtonRight}},
		{"ClickNoButton", `{"type":"click","x":1,"y":2}`, schemas.ClickAction{X: 1, Y: 2}},
		{"Scroll", `{"type":"scroll","x":5,"y":6,"scroll_x":0,"scroll_y":-300}`, schemas.ScrollAction{X: 5, Y: 6, ScrollY: -300}},
		{"Type", `{"type":"type","text":"ana@x.com"}`, schemas.TypeTextAction{Text: "ana@x.com"}},
		{"Keypress", `{"type":"keypress","keys":["CTRL","a"]}`, schemas.KeypressAction{Keys: []string{"CTRL", "a"}}},
		{"Wait", `{"type":"wait"}`, schemas.WaitAction{}},
		{"Screenshot", `{"type":"screenshot"}`, schemas.ScreenshotAction{}},
		{"Unknown", `{"type":"double_click","x":1,"y":1}`, schemas.UnrecognizedAction{Type: "double_click"}},
		{"MissingTag", `{}`, schemas.UnrecognizedAction{Type: ""}},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := schemas.DecodeAction(json.RawMessage(tt.raw))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeAction() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeAction_Malformed(t *testing.T) {
	t.Parallel()

	_, err := schemas.DecodeAction(json.RawMessage(`not json`))
	assert.Error(t, err)

	_, err = schemas.DecodeAction(json.RawMessage(`{"type":"click","x":"left"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"click"`)
}

func TestClickAction_EffectiveButton(t *testing.T) {
	t.Parallel()
	assert.Equal(t, schemas.ButtonLeft, schemas.ClickAction{}.Effective())
	assert.Equal(t, schemas.ButtonWheel, schemas.ClickAction{Button: schemas.ButtonWheel}.Effective())
}

func TestUnrecognizedAction_KindEchoesTag(t *testing.T) {
	t.Parallel()
	assert.Equal(t, schemas.ActionType("drag"), schemas.UnrecognizedAction{Type: "drag"}.Kind())
}
