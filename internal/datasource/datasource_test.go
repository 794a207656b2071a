package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gridcast/internal/config"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testClient(cfg HTTPClientConfig) *RateLimitedHTTPClient {
	return NewRateLimitedHTTPClient("test", cfg, nil)
}

func fastClientConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RateLimit = 0
	cfg.Retry = fastPolicy()
	return cfg
}

const matchesCSV = `game_id,season,week,gameday,home_team,away_team,home_score,away_score,stadium,roof
2024_01_BAL_KC,2024,1,2024-09-05,KC,BAL,27,20,GEHA Field at Arrowhead Stadium,outdoors
2024_02_KC_CIN,2024,2,2024-09-15,KC,CIN,26,25,GEHA Field at Arrowhead Stadium,outdoors
2024_03_KC_KC,2024,3,2024-09-22,KC,KC,10,3,Nowhere,outdoors
2024_10_DEN_KC,2024,10,2024-11-10,KC,DEN,NA,NA,GEHA Field at Arrowhead Stadium,outdoors
2024_10_DET_HOU,2024,10,2024-11-10,HOU,DET,,,NRG Stadium,closed
bad,20x4,1,2024-09-05,KC,BAL,1,2,X,open
`

func TestMatchCSV(t *testing.T) {
	feed := NewMatchCSV(writeFile(t, "games.csv", matchesCSV), fastPolicy(), nil, nil)

	matches, err := feed.Matches(context.Background())
	require.NoError(t, err)
	// The self-match fails validation and the bad season fails parsing.
	require.Len(t, matches, 4)

	first := matches[0]
	assert.Equal(t, "2024_01_BAL_KC", first.ID)
	assert.Equal(t, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assert.True(t, first.IsCompleted())
	assert.Equal(t, 7, first.Margin())
	assert.Equal(t, models.RoofOpen, first.Roof)

	assert.False(t, matches[2].IsCompleted(), "NA scores are a fixture")
	assert.False(t, matches[3].IsCompleted())
	assert.True(t, matches[3].IsEnclosed())

	// Callers get their own copies.
	matches[0].HomeTeam = "XXX"
	again, err := feed.Matches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "KC", again[0].HomeTeam)
}

func TestMatchCSVMissingFileIsUnavailable(t *testing.T) {
	feed := NewMatchCSV(filepath.Join(t.TempDir(), "absent.csv"), fastPolicy(), nil, nil)
	_, err := feed.Matches(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeNotFound, dsErr.Code)
}

func TestPlayCSV(t *testing.T) {
	content := `game_id,game_date,posteam,defteam,play_type,epa,passer_player_id,rusher_player_id,receiver_player_id
g1,2024-09-05,KC,BAL,pass,0.45,QB1,NA,WR1
g1,2024-09-05,BAL,KC,run,-0.20,NA,RB9,NA
g1,2024-09-05,NA,NA,,NA,NA,NA,NA
g1,2024-09-05,KC,BAL,pass,NA,QB1,NA,WR1
g1,2024-09-05,KC,BAL,field_goal,0.9,NA,NA,NA
`
	plays, err := NewPlayCSV(writeFile(t, "pbp.csv", content), fastPolicy(), nil, nil).Plays(context.Background())
	require.NoError(t, err)
	require.Len(t, plays, 3)

	assert.Equal(t, models.PlayTypePass, plays[0].PlayType)
	assert.Equal(t, "QB1", plays[0].PasserID)
	assert.Equal(t, "WR1", plays[0].ReceiverID)
	assert.Empty(t, plays[0].RusherID)
	assert.InDelta(t, 0.45, plays[0].EPA, 1e-9)

	assert.Equal(t, models.PlayTypeRun, plays[1].PlayType)
	assert.Equal(t, "RB9", plays[1].RusherID)
	assert.Equal(t, models.PlayTypeOther, plays[2].PlayType)
}

func TestInjuryCSVReports(t *testing.T) {
	content := `season,week,team,full_name,gsis_id,position,report_status,date_modified,report_primary_injury
2024,10,KC,Patrick Mahomes,QB1,QB,Questionable,2024-11-06,Ankle
2024,10,KC,Patrick Mahomes,QB1,QB,Out,2024-11-08,Ankle
2024,10,KC,Travis Kelce,TE1,TE,Probable,2024-11-08,Knee
2024,10,KC,Rashee Rice,WR1,WR,Injured Reserve,2024-10-20,Knee
2024,10,KC,Late Scratch,X9,RB,Out,2024-11-11,Illness
2024,10,DEN,Bo Nix,QB7,QB,Doubtful,2024-11-08,Back
2024,10,KC,No Date,ND1,CB,Doubtful,,Hamstring
`
	feed := NewInjuryCSV(writeFile(t, "injuries.csv", content), fastPolicy(), nil, nil)

	reports, err := feed.Reports(context.Background(), "KC", time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "No Date", reports[0].Player)
	assert.Equal(t, models.SeverityDoubtful, reports[0].Severity)

	assert.Equal(t, "Patrick Mahomes", reports[1].Player)
	assert.Equal(t, models.SeverityOut, reports[1].Severity, "the latest report wins")
	assert.Equal(t, "QB1", reports[1].PlayerID)
	assert.Equal(t, "Ankle", reports[1].Note)
}

func TestDepthChartCSV(t *testing.T) {
	content := `club_code,position,depth_team,full_name,gsis_id
KC,QB,2,Carson Wentz,QB2
KC,WR,1,Rashee Rice,WR1
KC,QB,1,Patrick Mahomes,QB1
DEN,QB,1,Bo Nix,QB7
KC,QB,0,Broken Rank,QB3
`
	chart, err := NewDepthChartCSV(writeFile(t, "depth.csv", content), fastPolicy(), nil, nil).DepthChart(context.Background(), "KC")
	require.NoError(t, err)
	require.Len(t, chart, 3)
	assert.Equal(t, "Patrick Mahomes", chart[0].Player)
	assert.Equal(t, "Carson Wentz", chart[1].Player)
	assert.Equal(t, "WR", chart[2].Position)
}

func TestHTTPClientRetriesTransientStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]int{"value": 7})
	}))
	defer srv.Close()

	var out map[string]int
	err := testClient(fastClientConfig()).GetJSON(context.Background(), srv.URL, "secret", &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out["value"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPClientMapsStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, ErrCodeAuthenticationFailed},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusTeapot, ErrCodeServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var out interface{}
			err := testClient(fastClientConfig()).GetJSON(context.Background(), srv.URL, "", &out)
			var dsErr DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
			assert.ErrorIs(t, err, models.ErrDataUnavailable)
		})
	}
}

func TestHTTPClientFailuresAreDataUnavailable(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	var out interface{}
	cfg := fastClientConfig()

	err := testClient(cfg).GetJSON(context.Background(), failing.URL, "", &out)
	assert.ErrorIs(t, err, models.ErrDataUnavailable, "retries exhausted on 5xx")

	err = testClient(cfg).GetJSON(context.Background(), closedURL, "", &out)
	assert.ErrorIs(t, err, models.ErrDataUnavailable, "connection refused")

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer garbled.Close()
	err = testClient(cfg).GetJSON(context.Background(), garbled.URL, "", &out)
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.NotErrorIs(t, err, models.ErrDataUnavailable)
}

func TestHTTPClientCircuitBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastClientConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.CircuitBreakerMax = 2
	client := testClient(cfg)

	var out interface{}
	for i := 0; i < 2; i++ {
		require.Error(t, client.GetJSON(context.Background(), srv.URL, "", &out))
	}
	err := client.GetJSON(context.Background(), srv.URL, "", &out)
	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeCircuitOpen, dsErr.Code)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "an open breaker short-circuits the request")
}

func TestHTTPWeatherFeedNormalisesAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "Lambeau Field", r.URL.Query().Get("venue"))
		assert.Equal(t, "2024-12-01", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`{"max_temp": -5, "max_wind": 40, "precip": 2.54}`))
	}))
	defer srv.Close()

	cache := NewFeedCache(time.Minute, 10)
	feed := NewHTTPWeatherFeed(testClient(fastClientConfig()), srv.URL+"/", "", "metric", cache, nil, nil)
	date := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	obs, err := feed.Forecast(context.Background(), "Lambeau Field", date)
	require.NoError(t, err)
	assert.InDelta(t, 23.0, obs.MaxTempF, 1e-9)
	assert.InDelta(t, 24.855, obs.MaxWindMPH, 1e-3)
	assert.InDelta(t, 0.1, obs.PrecipInches, 1e-9)

	_, err = feed.Forecast(context.Background(), "Lambeau Field", date)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	hitsCount, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(1), hitsCount)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestHTTPWeatherFeedRejectsUnknownUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"max_temp": 10, "max_wind": 5, "precip": 0, "units": "kelvin"}`))
	}))
	defer srv.Close()

	feed := NewHTTPWeatherFeed(testClient(fastClientConfig()), srv.URL, "", "imperial", nil, nil, nil)
	_, err := feed.Forecast(context.Background(), "Soldier Field", time.Now())
	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeInvalidData, dsErr.Code)
}

func TestHTTPAvailabilityFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "KC", r.URL.Query().Get("team"))
		_, _ = w.Write([]byte(`[
			{"player": "Patrick Mahomes", "player_id": "QB1", "position": "qb", "status": "Out"},
			{"player": "Travis Kelce", "position": "TE", "status": "Probable"},
			{"player": "", "position": "WR", "status": "Out"}
		]`))
	}))
	defer srv.Close()

	feed := NewHTTPAvailabilityFeed(testClient(fastClientConfig()), srv.URL, "", nil, nil, nil)
	reports, err := feed.Reports(context.Background(), "KC", time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "QB", reports[0].Position)
	assert.Equal(t, "KC", reports[0].Team)
	assert.Equal(t, models.SeverityOut, reports[0].Severity)
}

func TestFeedCacheInvalidate(t *testing.T) {
	cache := NewFeedCache(time.Minute, 0)
	cache.Set(CacheKey{Feed: FeedWeather, Parts: []string{"a"}}, 1)
	cache.Set(CacheKey{Feed: FeedDepthCharts, Parts: []string{"KC"}}, 2)
	cache.Invalidate(FeedWeather)
	assert.Equal(t, 1, cache.ItemCount())

	_, ok := cache.Get(CacheKey{Feed: FeedDepthCharts, Parts: []string{"KC"}})
	assert.True(t, ok)
	cache.Clear()
	assert.Equal(t, 0, cache.ItemCount())
}

func testConfig(matchesPath string) *config.Config {
	return &config.Config{
		Feeds: config.FeedsConfig{
			Matches:      config.FeedSourceConfig{Kind: "csv", Path: matchesPath},
			Plays:        config.FeedSourceConfig{Kind: "none"},
			Availability: config.FeedSourceConfig{Kind: "http", URL: "http://localhost:1"},
			DepthCharts:  config.FeedSourceConfig{},
			Weather:      config.FeedSourceConfig{Kind: "none"},
			CacheTTL:     time.Minute,
		},
		Retry: config.RetryConfig{MaxAttempts: 1, Multiplier: 1},
	}
}

func TestFactoryBuild(t *testing.T) {
	feeds, err := NewFactory(testConfig("games.csv"), nil).Build()
	require.NoError(t, err)
	defer feeds.Close()

	assert.IsType(t, &MatchCSV{}, feeds.Matches)
	assert.IsType(t, &HTTPAvailabilityFeed{}, feeds.Availability)
	assert.Nil(t, feeds.Plays)
	assert.Nil(t, feeds.DepthCharts)
	assert.Nil(t, feeds.Weather)
	assert.NotNil(t, feeds.Cache)
}

func TestFactoryPostgresNeedsStore(t *testing.T) {
	cfg := testConfig("")
	cfg.Feeds.Matches = config.FeedSourceConfig{Kind: "postgres"}

	_, err := NewFactory(cfg, nil).Build()
	require.Error(t, err)

	feeds, err := NewFactory(cfg, nil).WithMatchStore(NewMatchCSV("x.csv", fastPolicy(), nil, nil)).Build()
	require.NoError(t, err)
	assert.NotNil(t, feeds.Matches)
}

func TestListConfigured(t *testing.T) {
	names := NewFactory(testConfig("games.csv"), nil).ListConfigured()
	assert.Equal(t, []string{"availability=http", "matches=csv"}, names)
}
