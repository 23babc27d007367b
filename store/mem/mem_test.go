package mem

import (
	"context"
	"testing"

	"github.com/bobg/pngmsg/testutil"
)

func TestStore(t *testing.T) {
	testutil.Store(context.Background(), t, New(), true)
}
