package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierRule(t *testing.T) {
	for _, id := range []string{"", "   ", "undefined", "null", " abc"} {
		assert.Error(t, Validate(ChatParams{ID: id}), "id %q", id)
		assert.True(t, IsEmptyIdentifier(id))
	}
	assert.NoError(t, Validate(ChatParams{ID: "4d0e6f8a-8d2c-4a8b-9d1e-000000000001"}))
}

func TestWalletNonceQueryRequiresEthereumAddress(t *testing.T) {
	err := Validate(WalletNonceQuery{WalletAddress: "not-an-address"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "walletAddress", verrs[0].Field())
	assert.Equal(t, "eth_addr", verrs[0].Tag())

	assert.NoError(t, Validate(WalletNonceQuery{WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7"}))
}

func TestWalletLoginReferralLength(t *testing.T) {
	req := WalletLoginRequest{
		WalletAddress: "0x8617E340B3D01FA5F11F306F4090FD50E238070D",
		Signature:     "0xdead",
		ReferralCode:  "ab",
	}
	assert.Error(t, Validate(req))
	req.ReferralCode = "abc"
	assert.NoError(t, Validate(req))
}

func TestEmptyUpdateLinkRequestIsValid(t *testing.T) {
	req := UpdateLinkRequest{}
	assert.NoError(t, Validate(req))
	assert.True(t, req.Empty())

	bad := "not a url"
	assert.Error(t, Validate(UpdateLinkRequest{URL: &bad}))
}

func TestPostChatRequest(t *testing.T) {
	raw := `{
		"id": "c1",
		"message": {"id": "m1", "role": "user", "parts": [{"type": "text", "text": "hello"}]},
		"selectedChatModel": "chat-model"
	}`
	var req PostChatRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.NoError(t, Validate(req))

	msg, ok := req.UserMessage()
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Text())
	assert.Equal(t, VisibilityPrivate, req.Visibility())

	req.SelectedVisibilityType = "friends"
	assert.Error(t, Validate(req))
}

func TestPostChatRequestFallsBackToLastMessage(t *testing.T) {
	req := PostChatRequest{Messages: []UIMessage{
		{ID: "a", Role: "user", Parts: []Part{{Type: "text", Text: "first"}}},
		{ID: "b", Role: "user", Parts: []Part{{Type: "text", Text: "second"}}},
	}}
	msg, ok := req.UserMessage()
	require.True(t, ok)
	assert.Equal(t, "b", msg.ID)
}

func TestPartKeepsUnknownShapes(t *testing.T) {
	raw := `{"type":"tool-call","toolName":"balance","args":{"chain":"u2u"}}`
	var part Part
	require.NoError(t, json.Unmarshal([]byte(raw), &part))
	assert.Equal(t, "tool-call", part.Type)

	out, err := json.Marshal(part)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
