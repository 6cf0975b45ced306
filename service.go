package depthprofile

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fieldCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_field_cache_hits_total",
		Help: "The total number of hits on the field cache",
	})
	fieldCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_field_cache_misses_total",
		Help: "The total number of misses on the field cache",
	})
	fieldCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_field_cache_evictions_total",
		Help: "The total number of evictions from the field cache",
	})
	profileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_profile_cache_hits_total",
		Help: "The total number of hits on the profile cache",
	})
	profileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_profile_cache_misses_total",
		Help: "The total number of misses on the profile cache",
	})
	profilesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthprofile_profiles_extracted_total",
		Help: "The total number of profiles extracted",
	})
)

// A profileKey identifies a profile within a catalog generation.
type profileKey struct {
	generation uint64
	location   string
	request    ProfileRequest
}

// A Service serves profiles from a catalog, memoizing coordinate fields by
// location name and profiles by request. It is safe for concurrent use.
type Service struct {
	mutex            sync.Mutex
	source           Source
	loadTimeout      time.Duration
	fieldCacheSize   int
	profileCacheSize int
	fieldOptions     []FieldOption
	catalog          *Catalog
	generation       uint64
	fieldCache       *lru.Cache[string, *CoordinateField]
	profileCache     *otter.Cache[profileKey, *Profile]
}

// A ServiceOption sets an option on a Service.
type ServiceOption func(*Service)

// NewService returns a new Service with the catalog loaded from source.
func NewService(ctx context.Context, source Source, options ...ServiceOption) (*Service, error) {
	s := &Service{
		source:           source,
		loadTimeout:      10 * time.Second,
		fieldCacheSize:   16,
		profileCacheSize: 256,
	}
	for _, option := range options {
		option(s)
	}

	var err error
	s.fieldCache, err = lru.New[string, *CoordinateField](s.fieldCacheSize)
	if err != nil {
		return nil, err
	}
	s.profileCache, err = otter.New(&otter.Options[profileKey, *Profile]{
		MaximumSize: s.profileCacheSize,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WithLoadTimeout sets the timeout for loading the catalog.
func WithLoadTimeout(loadTimeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.loadTimeout = loadTimeout
	}
}

// WithFieldCacheSize sets the maximum number of memoized coordinate fields.
func WithFieldCacheSize(fieldCacheSize int) ServiceOption {
	return func(s *Service) {
		s.fieldCacheSize = fieldCacheSize
	}
}

// WithProfileCacheSize sets the maximum number of memoized profiles.
func WithProfileCacheSize(profileCacheSize int) ServiceOption {
	return func(s *Service) {
		s.profileCacheSize = profileCacheSize
	}
}

// WithFieldOptions sets the options used to build coordinate fields.
func WithFieldOptions(fieldOptions ...FieldOption) ServiceOption {
	return func(s *Service) {
		s.fieldOptions = fieldOptions
	}
}

// Reload reloads the catalog from s's source and invalidates all memoized
// fields and profiles. If the load fails, s keeps its current catalog.
func (s *Service) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	catalog, err := LoadCatalog(ctx, s.source)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.catalog = catalog
	s.generation++
	s.fieldCache.Purge()
	s.profileCache.InvalidateAll()
	return nil
}

// Catalog returns s's current catalog.
func (s *Service) Catalog() *Catalog {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.catalog
}

// Locations returns the names of the usable locations.
func (s *Service) Locations() []string {
	return s.Catalog().Names()
}

// Errors returns the errors for records excluded from the current catalog.
func (s *Service) Errors() []*RecordError {
	return s.Catalog().Errors()
}

// Record returns the parsed record for name.
func (s *Service) Record(name string) (*GridRecord, error) {
	return s.Catalog().Record(name)
}

// Field returns the coordinate field for name, building it if needed.
func (s *Service) Field(name string) (*CoordinateField, error) {
	if field, ok := s.fieldCache.Get(name); ok {
		fieldCacheHits.Inc()
		return field, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if field, ok := s.fieldCache.Get(name); ok {
		fieldCacheHits.Inc()
		return field, nil
	}

	fieldCacheMisses.Inc()

	record, err := s.catalog.Record(name)
	if err != nil {
		return nil, err
	}
	field, err := BuildField(record, s.fieldOptions...)
	if err != nil {
		return nil, err
	}
	if eviction := s.fieldCache.Add(name, field); eviction {
		fieldCacheEvictions.Inc()
	}
	return field, nil
}

// Profile returns the profile for req in the location name. The returned
// profile is owned by the caller.
func (s *Service) Profile(ctx context.Context, name string, req ProfileRequest) (*Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	key := profileKey{
		generation: s.generation,
		location:   name,
		request:    req,
	}
	s.mutex.Unlock()

	loaded := false
	profile, err := s.profileCache.Get(ctx, key, otter.LoaderFunc[profileKey, *Profile](func(ctx context.Context, key profileKey) (*Profile, error) {
		loaded = true
		field, err := s.Field(key.location)
		if err != nil {
			return nil, err
		}
		profile, err := Extract(field, key.request)
		if err != nil {
			return nil, err
		}
		profilesExtracted.Inc()
		return profile, nil
	}))
	if err != nil {
		return nil, err
	}
	if loaded {
		profileCacheMisses.Inc()
	} else {
		profileCacheHits.Inc()
	}
	return profile.Clone(), nil
}
