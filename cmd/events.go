package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parkrun-transit/internal/explorer"
	"github.com/sells-group/parkrun-transit/internal/geo"
	"github.com/sells-group/parkrun-transit/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List parkrun events near public transport",
	Long:  "Loads the events and stop datasets through the cache, attaches the nearest stop within the radius to each event and prints the sorted list with a summary line.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSource(ctx, "events")
		if err != nil {
			return err
		}
		defer env.Close()

		q, err := defaultQuery()
		if err != nil {
			return err
		}
		loc, err := applyEventFlags(cmd, &q)
		if err != nil {
			return err
		}
		wantLocation := q.SortBy == geo.SortByMyLocation
		q.SortBy = geo.SortByNearestStop

		ex, err := explorer.New(env.Source, q, explorerOptions()...)
		if err != nil {
			return err
		}
		if err := ex.Load(ctx); err != nil {
			return err
		}
		if wantLocation {
			if !ex.UseMyLocation(ctx, explorer.StaticLocator{Loc: loc}) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Could not get your location; sorting by nearest stop.")
			}
		} else {
			ex.SetUserLocation(loc)
		}

		format, _ := cmd.Flags().GetString("format")
		return writeView(cmd.OutOrStdout(), format, ex.View(), ex.Query().Location)
	},
}

// applyEventFlags overlays explicitly set flags onto q and returns the
// location given by --lat/--lon, if any.
func applyEventFlags(cmd *cobra.Command, q *explorer.Query) (*model.Location, error) {
	flags := cmd.Flags()
	if flags.Changed("radius-km") {
		q.RadiusKM, _ = flags.GetFloat64("radius-km")
	}
	if flags.Changed("modes") {
		raw, _ := flags.GetString("modes")
		q.Modes = explorer.SplitModes(raw)
	}
	if flags.Changed("sort") {
		s, _ := flags.GetString("sort")
		by, err := geo.ParseSortBy(s)
		if err != nil {
			return nil, err
		}
		q.SortBy = by
	}
	if flags.Changed("order") {
		s, _ := flags.GetString("order")
		order, err := geo.ParseSortOrder(s)
		if err != nil {
			return nil, err
		}
		q.Order = order
	}
	q.All, _ = flags.GetBool("all")

	var loc *model.Location
	switch latSet, lonSet := flags.Changed("lat"), flags.Changed("lon"); {
	case latSet && lonSet:
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		loc = &model.Location{Lat: lat, Lon: lon}
		if err := explorer.ValidateLocation(*loc); err != nil {
			return nil, err
		}
	case latSet || lonSet:
		return nil, eris.New("--lat and --lon must be given together")
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return loc, nil
}

func writeView(out io.Writer, format string, v explorer.View, loc *model.Location) error {
	switch format {
	case "table", "":
		formatEventsTable(out, v, loc)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func formatEventsTable(out io.Writer, v explorer.View, loc *model.Location) {
	if len(v.Events) == 0 {
		_, _ = fmt.Fprintln(out, "No events found within the selected distance.")
		_, _ = fmt.Fprintln(out, v.Stats.Text)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "ID\tEVENT\tLOCATION\tNEAREST STOP\tMODE\tDISTANCE"
	rule := "--\t-----\t--------\t------------\t----\t--------"
	if loc != nil {
		header += "\tFROM YOU"
		rule += "\t--------"
	}
	_, _ = fmt.Fprintln(w, header)
	_, _ = fmt.Fprintln(w, rule)

	for _, e := range v.Events {
		stopName, mode, dist := "-", "", "-"
		if ns := e.NearestStop; ns != nil {
			stopName = ns.Stop.Properties.StopName
			mode = explorer.ModeIcon(ns.Stop.Properties.Mode) + " " + ns.Stop.Properties.Mode
			dist = formatKM(ns.Distance)
		}
		line := fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s",
			e.ID,
			e.Properties.EventLongName,
			e.Properties.EventLocation,
			stopName,
			mode,
			dist,
		)
		if loc != nil {
			d, _ := geo.UserDistance(e.ParkrunEvent, loc)
			line += "\t" + formatKM(d)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, v.Stats.Text)
}

func formatKM(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

func addEventFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("radius-km", 0, "search radius in km (default from config)")
	f.String("modes", "", "comma separated transport modes (default from config)")
	f.String("sort", "", "sort key: nearest-stop or my-location (default from config)")
	f.String("order", "", "sort order: asc or desc (default from config)")
	f.Float64("lat", 0, "your latitude")
	f.Float64("lon", 0, "your longitude")
	f.Bool("all", false, "include events with no stop in range")
	f.String("format", "table", "output format: table, json or yaml")
}

func init() {
	addEventFlags(eventsCmd)
	rootCmd.AddCommand(eventsCmd)
}
