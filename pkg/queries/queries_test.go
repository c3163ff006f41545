package queries

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write queries file: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "queries.yaml", `
queries:
  - id: latest-block
    path: /cosmos/base/tendermint/v1beta1/blocks/latest
  - id: balances
    method: get
    path: /cosmos/bank/v1beta1/balances/fetch1abc
    params:
      address: fetch1abc
      pagination:
        limit: 10
    used_params: [address, " "]
  - id: broadcast
    method: POST
    path: /cosmos/tx/v1beta1/txs
    body:
      tx_bytes: AB==
      mode: BROADCAST_MODE_SYNC
    enabled: false
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(reg.All()); got != 3 {
		t.Fatalf("expected 3 queries, got %d", got)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "latest-block" || enabled[1].ID != "balances" {
		t.Fatalf("unexpected enabled queries %#v", enabled)
	}

	q, ok := reg.ByID("balances")
	if !ok {
		t.Fatalf("expected balances query")
	}
	if q.Method != "GET" {
		t.Fatalf("expected method upper-cased, got %q", q.Method)
	}
	if len(q.UsedParams) != 1 || q.UsedParams[0] != "address" {
		t.Fatalf("unexpected used params %v", q.UsedParams)
	}

	msg, err := q.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	pagination := msg.GetFields()["pagination"].GetStructValue()
	if pagination == nil || pagination.GetFields()["limit"].GetNumberValue() != 10 {
		t.Fatalf("unexpected pagination %v", msg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "queries.json", `{"queries":[{"id":"tx","method":"POST","path":"/cosmos/tx/v1beta1/txs","body":{"mode":"BROADCAST_MODE_SYNC"}}]}`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	q, _ := reg.ByID("tx")
	msg, err := q.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if got := msg.GetFields()["mode"].GetStringValue(); got != "BROADCAST_MODE_SYNC" {
		t.Fatalf("unexpected mode %q", got)
	}
}

func TestMessageIsNilWithoutParams(t *testing.T) {
	q := sanitize(Query{ID: "x", Path: "/x"})
	msg, err := q.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message, got %v", msg)
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
queries:
  - {id: a, path: /a}
  - {id: a, path: /b}
`,
		"relative path": `
queries:
  - {id: a, path: a}
`,
		"post without body": `
queries:
  - {id: a, method: POST, path: /a}
`,
		"post with used params": `
queries:
  - {id: a, method: POST, path: /a, body: {x: 1}, used_params: [x]}
`,
		"unsupported method": `
queries:
  - {id: a, method: DELETE, path: /a}
`,
		"empty": `queries: []`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "queries.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
