// Package plugins hosts plugin implementations built on pluginkit. It holds
// no runtime code; the architecture test alongside it checks that every
// plugin imports only the public pkg/ packages.
package plugins
