package httpapi

import (
	"encoding/json"
	"testing"
)

// The desktop client reads the sandbox descriptor by its documented keys;
// the wire names are part of the contract.
func TestFilesInfoResponseWireKeys(t *testing.T) {
	data, err := json.Marshal(FilesInfoResponse{Root: "/home/u/CerebroProjects", Exists: true})
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["root"] != "/home/u/CerebroProjects" {
		t.Errorf(`payload["root"] = %v, want the orbit root`, payload["root"])
	}
	if payload["exists"] != true {
		t.Errorf(`payload["exists"] = %v, want true`, payload["exists"])
	}
	if _, leaked := payload["safeOrbit"]; leaked {
		t.Error(`payload carries "safeOrbit", the descriptor key is "root"`)
	}
}
