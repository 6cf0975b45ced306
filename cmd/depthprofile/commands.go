package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cpbynwol/go-depthprofile"
)

// parsePoint parses a point given as "lon,lat".
func parsePoint(s string) (depthprofile.GeoPoint, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 2 {
		return depthprofile.GeoPoint{}, fmt.Errorf("%w: %q: expected lon,lat", depthprofile.ErrInvalidRequest, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return depthprofile.GeoPoint{}, fmt.Errorf("%w: %q: invalid longitude", depthprofile.ErrInvalidRequest, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return depthprofile.GeoPoint{}, fmt.Errorf("%w: %q: invalid latitude", depthprofile.ErrInvalidRequest, s)
	}
	return depthprofile.GeoPoint{Lon: lon, Lat: lat}, nil
}

// newService opens the configured catalog and returns a service reading from
// it and a function to close it.
func newService(ctx context.Context, cfg *Config) (*depthprofile.Service, func(), error) {
	conn, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	service, err := depthprofile.NewService(ctx, conn.source,
		depthprofile.WithLoadTimeout(cfg.Catalog.LoadTimeout),
		depthprofile.WithFieldCacheSize(cfg.Cache.Fields),
		depthprofile.WithProfileCacheSize(cfg.Cache.Profiles),
	)
	if err != nil {
		conn.close()
		return nil, nil, err
	}
	slog.Info("catalog loaded",
		slog.String("driver", cfg.Catalog.Driver),
		slog.Int("locations", len(service.Locations())),
		slog.Int("errors", len(service.Errors())),
		slog.Duration("duration", time.Since(start)),
	)
	logRecordErrors(service.Errors())
	return service, conn.close, nil
}

func newLocationsCmd(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List catalog locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeCatalog, err := newService(cmd.Context(), config())
			if err != nil {
				return err
			}
			defer closeCatalog()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "LOCATION\tSIZE\tBOUNDING BOX")
			for _, name := range service.Locations() {
				record, err := service.Record(name)
				if err != nil {
					fmt.Fprintf(tw, "%s\t-\t%v\n", name, err)
					continue
				}
				bb := record.BoundingBox()
				fmt.Fprintf(tw, "%s\t%dx%d\t%g,%g %g,%g\n", name, record.Rows(), record.Cols(), bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat)
			}
			for _, recordErr := range service.Errors() {
				fmt.Fprintf(tw, "%s\t-\t%v\n", recordErr.Location, recordErr)
			}
			return tw.Flush()
		},
	}
}

func newProfileCmd(config func() *Config) *cobra.Command {
	var (
		location string
		start    string
		end      string
		samples  int
		output   string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Extract a depth profile",
		Long: `Extract a depth profile along the line between two points.

Examples:
  depthprofile profile --location harbour --start -1.5,43.4 --end -1.4,43.5
  depthprofile profile --location harbour --start -1.5,43.4 --end -1.4,43.5 -n 1000 -o profile.mat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config()
			startPoint, err := parsePoint(start)
			if err != nil {
				return err
			}
			endPoint, err := parsePoint(end)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("samples") {
				samples = cfg.Profile.Samples
			}
			req := depthprofile.ProfileRequest{
				Start:   startPoint,
				End:     endPoint,
				Samples: samples,
			}
			if err := req.Validate(); err != nil {
				return err
			}

			service, closeCatalog, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeCatalog()

			profile, err := service.Profile(cmd.Context(), location, req)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return writeProfileTable(cmd.OutOrStdout(), profile)
			}
			return writeProfileFile(output, profile)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "location name (required)")
	cmd.Flags().StringVar(&start, "start", "", "start point as lon,lat (required)")
	cmd.Flags().StringVar(&end, "end", "", "end point as lon,lat (required)")
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "number of samples (default from profile.samples)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.mat, .json, or .kml)")
	cobra.CheckErr(cmd.MarkFlagRequired("location"))
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))
	return cmd
}

func writeProfileTable(w io.Writer, profile *depthprofile.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LON\tLAT\tDISTANCE_KM\tELEVATION\t")
	for i := range profile.Len() {
		elevation := "-"
		if !profile.Masked(i) {
			elevation = strconv.FormatFloat(profile.Elevation[i], 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%.6f\t%.6f\t%.3f\t%s\t\n", profile.Path[i].Lon, profile.Path[i].Lat, profile.DistanceKm[i], elevation)
	}
	return tw.Flush()
}

func writeProfileFile(filename string, profile *depthprofile.Profile) (err error) {
	var write func(io.Writer) error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mat":
		write = profile.WriteMAT
	case ".json":
		write = func(w io.Writer) error {
			return json.NewEncoder(w).Encode(profile)
		}
	case ".kml":
		write = profile.WriteKML
	default:
		return fmt.Errorf("%s: unsupported output format %q", filename, ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return write(file)
}

func newDistanceCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Print the geodesic distance between two points in kilometers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startPoint, err := parsePoint(start)
			if err != nil {
				return err
			}
			endPoint, err := parsePoint(end)
			if err != nil {
				return err
			}
			distance := depthprofile.Distance(startPoint, endPoint)
			if math.IsNaN(distance) {
				return fmt.Errorf("%w: no distance between %s and %s", depthprofile.ErrInvalidRequest, start, end)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", distance)
			return err
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start point as lon,lat (required)")
	cmd.Flags().StringVar(&end, "end", "", "end point as lon,lat (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))
	return cmd
}

func newImportGeoTIFFCmd(config func() *Config) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "import-geotiff FILE",
		Short: "Import a GeoTIFF into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config()
			dir, filename := filepath.Split(args[0])
			if dir == "" {
				dir = "."
			}
			if location == "" {
				location = strings.TrimSuffix(filename, filepath.Ext(filename))
			}
			record, err := depthprofile.ReadGeoTIFF(os.DirFS(dir), filename, location)
			if err != nil {
				return err
			}

			conn, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.close()
			if conn.store == nil {
				return fmt.Errorf("%s: catalog driver is read-only", cfg.Catalog.Driver)
			}
			if err := conn.store.CreateTable(cmd.Context()); err != nil {
				return err
			}
			if err := conn.store.Put(cmd.Context(), record.Raw()); err != nil {
				return err
			}
			slog.Info("imported",
				slog.String("location", record.Name),
				slog.Int("rows", record.Rows()),
				slog.Int("cols", record.Cols()),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "location name (default file name)")
	return cmd
}

func newServeCmd(v *viper.Viper, config func() *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve profiles over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config()
			ctx := cmd.Context()
			service, closeCatalog, err := newService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCatalog()

			app := newApp(service, cfg)
			errCh := make(chan error, 1)
			go func() {
				slog.Info("server starting", slog.String("addr", cfg.Server.Addr))
				errCh <- app.Listen(cfg.Server.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				slog.Info("shutting down")
				return app.ShutdownWithTimeout(10 * time.Second)
			}
		},
	}
	cmd.Flags().String("server-addr", ":9009", "listen address")
	cmd.Flags().Int("cache-fields", 16, "number of coordinate fields to cache")
	cmd.Flags().Int("cache-profiles", 256, "number of profiles to cache")
	for key, flag := range map[string]string{
		"server.addr":    "server-addr",
		"cache.fields":   "cache-fields",
		"cache.profiles": "cache-profiles",
	} {
		cobra.CheckErr(v.BindPFlag(key, cmd.Flags().Lookup(flag)))
	}
	return cmd
}
