// Command district-ratings collects school district ratings from
// GreatSchools, Niche and SchoolDigger into a single CSV.
package main

import "github.com/pfrederiksen/district-ratings/internal/cli"

func main() {
	cli.Execute()
}
