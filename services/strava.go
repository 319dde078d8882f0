package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/utils"
)

// ErrStravaNotConnected is returned when a sync is requested before the user
// has linked their Strava account.
var ErrStravaNotConnected = errors.New("strava account not connected")

const (
	stravaAPIBase      = "https://www.strava.com/api/v3"
	stravaSyncPageSize = 30
)

var stravaEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// StravaService owns the OAuth link to Strava and pulls recent runs into the
// activities table. Sync is read-side plumbing only; it never touches the
// medal ledger.
type StravaService struct {
	db *gorm.DB
}

func NewStravaService(db *gorm.DB) *StravaService {
	return &StravaService{db: db}
}

// OAuthConfig builds the Strava OAuth2 config from application settings.
func (s *StravaService) OAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		Endpoint:     stravaEndpoint,
		RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/strava/callback",
		Scopes:       []string{"read,activity:read"},
	}
}

type stravaAthlete struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type stravaActivity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Distance   float64   `json:"distance"`
	MovingTime int       `json:"moving_time"`
	StartDate  time.Time `json:"start_date"`
}

// Connect exchanges the callback code and stores the athlete identity and
// tokens on the user.
func (s *StravaService) Connect(ctx context.Context, userID uint, code string) error {
	conf := s.OAuthConfig()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("strava token exchange: %w", err)
	}

	client := conf.Client(ctx, tok)
	athlete, err := fetchAthlete(ctx, client)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"strava_athlete_id":    strconv.FormatInt(athlete.ID, 10),
		"strava_access_token":  tok.AccessToken,
		"strava_refresh_token": tok.RefreshToken,
		"strava_token_expiry":  tok.Expiry,
	}
	return s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// SyncActivities pulls the athlete's recent runs and upserts them by external
// id, so repeated syncs are idempotent. Returns the number of new rows.
func (s *StravaService) SyncActivities(ctx context.Context, userID uint) (int, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return 0, err
	}
	if !user.StravaConnected() {
		return 0, ErrStravaNotConnected
	}

	tok := &oauth2.Token{
		AccessToken:  user.StravaAccessToken,
		RefreshToken: user.StravaRefreshToken,
	}
	if user.StravaTokenExpiry != nil {
		tok.Expiry = *user.StravaTokenExpiry
	}
	conf := s.OAuthConfig()
	source := conf.TokenSource(ctx, tok)
	client := oauth2.NewClient(ctx, source)

	url := fmt.Sprintf("%s/athlete/activities?per_page=%d", stravaAPIBase, stravaSyncPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("strava activities request failed: %s", resp.Status)
	}

	var acts []stravaActivity
	if err := json.NewDecoder(resp.Body).Decode(&acts); err != nil {
		return 0, err
	}

	created := 0
	for _, a := range acts {
		row := models.Activity{
			UserID:         userID,
			ExternalID:     strconv.FormatInt(a.ID, 10),
			Name:           a.Name,
			Sport:          a.Type,
			DistanceMeters: a.Distance,
			MovingTimeSec:  a.MovingTime,
			StartedAt:      a.StartDate,
		}
		res := s.db.Where("external_id = ?", row.ExternalID).FirstOrCreate(&row)
		if res.Error != nil {
			return created, res.Error
		}
		if res.RowsAffected > 0 {
			created++
		}
	}

	// Persist a refreshed token so the next sync does not re-refresh.
	if fresh, err := source.Token(); err == nil && fresh.AccessToken != user.StravaAccessToken {
		_ = s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"strava_access_token":  fresh.AccessToken,
			"strava_refresh_token": fresh.RefreshToken,
			"strava_token_expiry":  fresh.Expiry,
		}).Error
	}

	if utils.Sugar != nil {
		utils.Sugar.Infow("strava sync finished", "user_id", userID, "fetched", len(acts), "created", created)
	}
	return created, nil
}

func fetchAthlete(ctx context.Context, client *http.Client) (*stravaAthlete, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stravaAPIBase+"/athlete", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("strava athlete request failed: %s", resp.Status)
	}
	var athlete stravaAthlete
	if err := json.NewDecoder(resp.Body).Decode(&athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}
