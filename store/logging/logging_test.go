package logging

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/bobg/pngmsg/store/mem"
	"github.com/bobg/pngmsg/testutil"
)

func TestStore(t *testing.T) {
	buf := new(bytes.Buffer)
	log.SetOutput(buf)
	defer log.SetOutput(os.Stderr)

	testutil.Store(context.Background(), t, New(mem.New()), true)

	out := buf.String()
	for _, want := range []string{"Put a.png", "ERROR Get nonexistent.png", "Update d.png (4 -> 6 bytes)", "Delete a.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q", want)
		}
	}
}
