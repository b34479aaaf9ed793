package installer

import (
	"encoding/xml"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var buildTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func renderByPath(t *testing.T, version string) map[string]string {
	t.Helper()

	artifacts, err := Render(NewParams(version, "macos", buildTime))
	require.NoError(t, err)

	out := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		out[a.Path] = string(a.Contents)
	}

	return out
}

// TestRender_InfoPlist checks bundle keys and the version strings.
func TestRender_InfoPlist(t *testing.T) {
	t.Parallel()

	plist := renderByPath(t, "1.2.3")[DefaultLayout().InfoPlist]

	require.Equal(t, 2, strings.Count(plist, "<string>1.2.3</string>"))
	require.Contains(t, plist, "<key>CFBundleShortVersionString</key>\n  <string>1.2.3</string>")
	require.Contains(t, plist, "<key>CFBundleVersion</key>\n  <string>1.2.3</string>")
	require.Contains(t, plist, "<key>CFBundleExecutable</key>\n  <string>pavr2gui</string>")
	require.Contains(t, plist, "<key>CFBundleIdentifier</key>\n  <string>com.pololu.pavr2.app</string>")
	require.Contains(t, plist, "<string>Copyright (C) 2025 Pololu Corporation</string>")

	for _, key := range []string{
		"CFBundleDevelopmentRegion", "CFBundleExecutable", "CFBundleIconFile", "CFBundleIdentifier",
		"CFBundleInfoDictionaryVersion", "CFBundleName", "CFBundlePackageType",
		"CFBundleShortVersionString", "CFBundleSignature", "CFBundleVersion", "NSHumanReadableCopyright",
	} {
		require.Contains(t, plist, "<key>"+key+"</key>")
	}

	require.NoError(t, xml.Unmarshal([]byte(plist), new(struct{})))
}

// TestRender_Distribution checks the two choices and the OS gate.
func TestRender_Distribution(t *testing.T) {
	t.Parallel()

	type pkgRef struct {
		ID   string `xml:"id,attr"`
		File string `xml:",chardata"`
	}

	type choice struct {
		ID      string `xml:"id,attr"`
		Visible string `xml:"visible,attr"`
	}

	var doc struct {
		Title   string   `xml:"title"`
		PkgRefs []pkgRef `xml:"pkg-ref"`
		Choices []choice `xml:"choice"`
		MinOS   struct {
			Min string `xml:"min,attr"`
		} `xml:"volume-check>allowed-os-versions>os-version"`
	}

	contents := renderByPath(t, "1.2.3")["distribution.xml"]
	require.NoError(t, xml.Unmarshal([]byte(contents), &doc))

	require.Equal(t, "Pololu USB AVR Programmer v2 1.2.3", doc.Title)
	require.Equal(t, []pkgRef{{ID: "app", File: "app.pkg"}, {ID: "path", File: "path.pkg"}}, doc.PkgRefs)
	require.Len(t, doc.Choices, 2)
	require.Equal(t, "app", doc.Choices[0].ID)
	require.Equal(t, "false", doc.Choices[0].Visible)
	require.Equal(t, "path", doc.Choices[1].ID)
	require.Equal(t, "10.11", doc.MinOS.Min)
	require.Contains(t, contents, "run pavr2cmd from a terminal")
}

// TestRender_BuildScript checks identifiers, command order and referenced roots.
func TestRender_BuildScript(t *testing.T) {
	t.Parallel()

	script := renderByPath(t, "1.2.3")["build.sh"]

	identifiers := regexp.MustCompile(`--identifier (\S+)`).FindAllStringSubmatch(script, -1)
	require.Len(t, identifiers, 3)
	require.Equal(t, "com.pololu.pavr2.app", identifiers[0][1])
	require.Equal(t, "com.pololu.pavr2.path", identifiers[1][1])
	require.Equal(t, "com.pololu.pavr2", identifiers[2][1])

	analyze := strings.Index(script, "pkgbuild --analyze")
	appPkg := strings.Index(script, "app.pkg")
	pathPkg := strings.Index(script, "path.pkg")
	product := strings.Index(script, "productbuild")

	require.GreaterOrEqual(t, analyze, 0)
	require.Less(t, analyze, appPkg)
	require.Less(t, appPkg, pathPkg)
	require.Less(t, pathPkg, product)

	require.Contains(t, script, `"pololu-usb-avr-programmer-v2-1.2.3-macos.pkg"`)

	layout := DefaultLayout()
	for _, root := range regexp.MustCompile(`--(?:root|resources) "([^"]+)"`).FindAllStringSubmatch(script, -1) {
		require.Contains(t, layout.Directories(), root[1])
	}

	require.True(t, strings.HasPrefix(script, "#!/bin/sh\nset -ue\n"))
	require.NotContains(t, script, "\\\n\n", "a continuation must not end on a blank line")
}

// TestRender_PathEntryAndWelcome checks the remaining text artifacts.
func TestRender_PathEntryAndWelcome(t *testing.T) {
	t.Parallel()

	rendered := renderByPath(t, "1.2.3")

	require.Equal(t, "/Applications/Pololu USB AVR Programmer v2.app/Contents/MacOS\n", rendered["path/99-pololu-avr2"])
	require.Contains(t, rendered["resources/welcome.html"], "The version number of this software is 1.2.3.")
	require.Contains(t, rendered["resources/welcome.html"], "(pavr2gui)")
	require.Contains(t, rendered["resources/welcome.html"], "(pavr2cmd)")
}

// TestRender_Deterministic renders twice and compares every byte.
func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := Render(NewParams("2.0.0", "macos", buildTime))
	require.NoError(t, err)

	second, err := Render(NewParams("2.0.0", "macos", buildTime))
	require.NoError(t, err)

	require.Equal(t, first, second)

	for _, a := range first {
		require.Equal(t, a.Path == "build.sh", a.Executable, a.Path)
	}
}

// TestRender_EscapesMarkupInVersion keeps XML and HTML artifacts well-formed for versions with markup characters.
func TestRender_EscapesMarkupInVersion(t *testing.T) {
	t.Parallel()

	rendered := renderByPath(t, "1.0&<b>")
	layout := DefaultLayout()

	plist := rendered[layout.InfoPlist]
	require.Contains(t, plist, "<string>1.0&amp;&lt;b&gt;</string>")
	require.NoError(t, xml.Unmarshal([]byte(plist), new(struct{})))

	var doc struct {
		Title string `xml:"title"`
	}

	require.NoError(t, xml.Unmarshal([]byte(rendered[layout.Distribution]), &doc))
	require.Equal(t, "Pololu USB AVR Programmer v2 1.0&<b>", doc.Title)

	require.Contains(t, rendered[layout.Welcome], "is 1.0&amp;&lt;b&gt;.")
	require.Contains(t, rendered[layout.BuildScript], `--version "1.0&<b>"`)
}
