package redact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestScrub_OrdersCollection(t *testing.T) {
	in := `{"orders":[{"email":"data","customer_name":"name","other":"testing"}]}`

	out, err := OrderExport.Scrub(in)
	require.NoError(t, err)

	doc := decode(t, out)
	orders := doc["orders"].([]any)
	require.Len(t, orders, 1)
	first := orders[0].(map[string]any)
	assert.Equal(t, "", first["email"])
	assert.Equal(t, "", first["customer_name"])
	assert.Equal(t, "testing", first["other"])
}

func TestScrub_EveryRecordInCollection(t *testing.T) {
	in := `{"utoken":"tok","platform":"commerce_cloud","orders":[
		{"email":"a@b.c","order_id":"1"},
		{"email":"d@e.f","customer_name":"Bob","order_id":"2"},
		"not-a-record"
	]}`

	out, err := OrderExport.Scrub(in)
	require.NoError(t, err)

	doc := decode(t, out)
	assert.Equal(t, "", doc["utoken"])
	assert.Equal(t, "commerce_cloud", doc["platform"])

	orders := doc["orders"].([]any)
	require.Len(t, orders, 3)
	assert.Equal(t, "", orders[0].(map[string]any)["email"])
	assert.Equal(t, "1", orders[0].(map[string]any)["order_id"])
	assert.Equal(t, "", orders[1].(map[string]any)["email"])
	assert.Equal(t, "", orders[1].(map[string]any)["customer_name"])
	assert.Equal(t, "2", orders[1].(map[string]any)["order_id"])
	assert.Equal(t, "not-a-record", orders[2])
}

func TestScrub_LoyaltyFields(t *testing.T) {
	in := `{"ip_address":"fake","id":5,"customer_id":123,"customer_email":"spam@here.com",` +
		`"remote_ip":"1.1.1.1","email":"fake@spam.com","customer_name":"tom smith","first_name":"tom","last_name":"smith"}`

	out, err := Loyalty.Scrub(in)
	require.NoError(t, err)

	doc := decode(t, out)
	for _, field := range []string{
		"ip_address", "id", "customer_id", "customer_email",
		"remote_ip", "email", "customer_name", "first_name", "last_name",
	} {
		assert.Equal(t, "", doc[field], field)
	}
}

func TestScrub_AbsentFieldsUntouched(t *testing.T) {
	out, err := Loyalty.Scrub(`{"order_id":"00012","amount_cents":1999,"coupon_code":"SAVE10"}`)
	require.NoError(t, err)

	doc := decode(t, out)
	assert.Len(t, doc, 3)
	assert.Equal(t, "00012", doc["order_id"])
	assert.Equal(t, float64(1999), doc["amount_cents"])
	assert.Equal(t, "SAVE10", doc["coupon_code"])
	assert.NotContains(t, doc, "email")
}

func TestScrub_Idempotent(t *testing.T) {
	in := `{"api_key":"k","guid":"g","email":"x@y.z","points":10,"orders":[{"email":"q"}]}`

	once, err := Loyalty.Scrub(in)
	require.NoError(t, err)
	twice, err := Loyalty.Scrub(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	once, err = OrderExport.Scrub(in)
	require.NoError(t, err)
	twice, err = OrderExport.Scrub(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestScrub_PreservesNumbersAndMarkup(t *testing.T) {
	out, err := OrderExport.Scrub(`{"total":12345678901234567890,"description":"<b>Soft & warm</b>"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `12345678901234567890`)
	assert.Contains(t, out, `<b>Soft & warm</b>`)
}

func TestScrub_TopLevelList(t *testing.T) {
	out, err := Loyalty.Scrub(`[{"email":"a","sku":"1"},{"id":7}]`)
	require.NoError(t, err)

	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, "", list[0]["email"])
	assert.Equal(t, "1", list[0]["sku"])
	assert.Equal(t, "", list[1]["id"])
}

func TestScrub_Malformed(t *testing.T) {
	for _, in := range []string{
		`{"orders":[`,
		`{"email":"a"} {"email":"leak@x"}`,
		`{"email":"a"}]`,
		`[] x`,
	} {
		out, err := OrderExport.Scrub(in)
		assert.ErrorIs(t, err, ErrMalformedPayload, in)
		assert.Empty(t, out)
	}

	out, err := OrderExport.Scrub("{\"email\":\"a\"}\n  ")
	require.NoError(t, err)
	assert.Equal(t, `{"email":""}`, out)
}

func TestScrub_DoesNotTouchInput(t *testing.T) {
	in := `{"email":"keep@me.com"}`
	_, err := Loyalty.Scrub(in)
	require.NoError(t, err)
	assert.Equal(t, `{"email":"keep@me.com"}`, in)
}

func TestRuleSetsAreIndependent(t *testing.T) {
	assert.True(t, Loyalty.Contains("guid"))
	assert.False(t, OrderExport.Contains("guid"))
	assert.True(t, OrderExport.Contains("customer_name"))
	assert.True(t, Loyalty.Contains("customer_name"))
	assert.False(t, OrderExport.Contains("customer_email"))
	assert.True(t, Auth.Contains("client_secret"))
}
