package color

import (
	"testing"

	"pluginkit/testutil"
)

func TestColorHasNoDriverImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DriverImportForbidden, "color registry must stay free of storage and network drivers")
}
