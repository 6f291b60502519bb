package pprint

import "fmt"

// PrintBanner prints the fmutools banner with version and tagline.
func PrintBanner(version, buildDate string) {
	lines := []string{
		StylePrimary.Render("   ┏━╸┏┳┓╻ ╻╺┳╸┏━┓┏━┓╻  ┏━┓"),
		StyleAccent.Render("   ┣╸ ┃┃┃┃ ┃ ┃ ┃ ┃┃ ┃┃  ┗━┓"),
		StyleMuted.Render("   ╹  ╹ ╹┗━┛ ╹ ┗━┛┗━┛┗━╸┗━┛"),
	}
	fmt.Fprintln(Out)
	for _, l := range lines {
		fmt.Fprintln(Out, l)
	}
	fmt.Fprintln(Out)

	versionStr := StyleAccent.Render("   " + version)
	if buildDate != "" && buildDate != "unknown" {
		versionStr += StyleMuted.Render("  built " + buildDate)
	}
	fmt.Fprintln(Out, StyleMuted.Render("   Design matrices, tornado input and volumetrics for FMU workflows"))
	fmt.Fprintln(Out, versionStr)
	fmt.Fprintln(Out)
}
