package manifest

import "strings"

const (
	// ProjectURL is the home page of the jack_delay GUI.
	ProjectURL = "https://example.com/jack_delay-gui"
	// DefaultSourceURL is where the jack_delay-gui files are published.
	DefaultSourceURL = ProjectURL + "/raw/v0.1.0"

	TemplateJackDelayGUI = "jack_delay-gui"
)

// Templates maps template names to constructors taking the base URL the
// sources are fetched from.
var Templates = map[string]func(baseURL string) *Manifest{
	TemplateJackDelayGUI: JackDelayGUI,
}

// JackDelayGUI returns the manifest of the jack_delay GUI: a setuptools
// project whose build and install steps are delegated to setup.py, plus an
// icon and a desktop entry installed with mode 0644.
func JackDelayGUI(baseURL string) *Manifest {
	if baseURL == "" {
		baseURL = DefaultSourceURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	files := []string{
		"LICENSE",
		"latency_test.py",
		"com.example.latency.desktop",
		"Latency_test.svg",
		"setup.py",
	}

	sources := make([]string, len(files))
	sums := make([]string, len(files))
	for i, f := range files {
		sources[i] = baseURL + "/" + f
		sums[i] = SkipChecksum
	}

	return &Manifest{
		Pkgname: "jack_delay-gui",
		Pkgver:  "0.1.0",
		Pkgrel:  "1",
		Pkgdesc: "A GUI for jack_delay, the JACK audio round-trip latency tester",
		Arch:    []string{"any"},
		URL:     ProjectURL,
		License: []string{"GPL-3.0-or-later"},
		Depends: []string{"python-pyqt6", "python-jack-client", "jack_delay"},
		Source:  sources,
		Md5sums: sums,
		Build: []Step{
			{Run: "python setup.py build"},
		},
		Package: []Step{
			{Run: "python setup.py install --root=$pkgdir --optimize=1 --skip-build"},
			{Install: &InstallSpec{
				Src:  "Latency_test.svg",
				Dest: "usr/share/icons/hicolor/scalable/apps/Latency_test.svg",
				Mode: "0644",
			}},
			{Install: &InstallSpec{
				Src:  "com.example.latency.desktop",
				Dest: "usr/share/applications/com.example.latency.desktop",
				Mode: "0644",
			}},
		},
	}
}
