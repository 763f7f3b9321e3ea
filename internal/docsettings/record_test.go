package docsettings_test

import (
	"testing"

	"github.com/pagemark/sidecar/internal/docsettings"
)

func Test_Record_Helpers(t *testing.T) {
	t.Parallel()

	rec := docsettings.Record{}

	rec.SaveSetting("inverted", true)
	rec.SaveSetting("zoom", "page")

	if !rec.Has("inverted") || !rec.IsTrue("inverted") {
		t.Error("stored boolean not readable")
	}

	if rec.IsTrue("zoom") {
		t.Error("non-boolean reported true")
	}

	if got := rec.ReadSetting("zoom"); got != "page" {
		t.Errorf("zoom = %v", got)
	}

	if got := rec.ReadSetting("missing"); got != nil {
		t.Errorf("missing key = %v, want nil", got)
	}

	rec.DelSetting("zoom")

	if rec.Has("zoom") {
		t.Error("deleted key still present")
	}
}
