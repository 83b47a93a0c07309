package datetime

import (
	"testing"

	"pluginkit/testutil"
)

func TestDatetimeHasNoDriverImports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DriverImportForbidden, "date formatting must stay free of storage and network drivers")
}
