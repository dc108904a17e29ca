package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariableMappingKeepsDocumentOrder(t *testing.T) {
	var m VariableMapping
	require.NoError(t, json.Unmarshal([]byte(`{"body-2":"event.venue","header-0":"card_url","body-0":"guest.name","body-1":7}`), &m))
	assert.Equal(t, VariableMapping{
		{Slot: "body-2", Field: "event.venue"},
		{Slot: "header-0", Field: "card_url"},
		{Slot: "body-0", Field: "guest.name"},
		{Slot: "body-1", Field: "7"},
	}, m)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"body-2":"event.venue","header-0":"card_url","body-0":"guest.name","body-1":"7"}`, string(raw))
}

func TestVariableMappingEdgeCases(t *testing.T) {
	var m VariableMapping
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &m))
	assert.Empty(t, m)

	require.NoError(t, json.Unmarshal([]byte(`{"body-0":"a","body-0":"b"}`), &m))
	assert.Equal(t, VariableMapping{{Slot: "body-0", Field: "b"}}, m)

	assert.Error(t, json.Unmarshal([]byte(`["body-0"]`), &m))

	raw, err := json.Marshal(VariableMapping(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestMessageTemplateConfigJSON(t *testing.T) {
	var cfg MessageTemplateConfig
	require.NoError(t, json.Unmarshal([]byte(`{"template_name":"wedding_invite","template_language":"en","variable_mapping":{"body-1":"event.name","body-0":"guest.name"}}`), &cfg))
	require.Len(t, cfg.VariableMapping, 2)
	assert.Equal(t, "body-1", cfg.VariableMapping[0].Slot)
}
