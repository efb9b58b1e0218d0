package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultPlaylistURL         = "https://www.youtube.com/playlist?list=PLsNiJ5ulrY_FB-BWOCLmObaEtg51bu9i6"
	defaultBrowser             = "firefox"
	defaultWatchURLBase        = "https://www.youtube.com/watch?v="
	defaultYtDlpBinary         = "yt-dlp"
	defaultListTimeout         = 300
	defaultListAttempts        = 3
	defaultProbeTimeout        = 60
	defaultFetchTimeout        = 7200
	defaultFormat              = "bestvideo[height>=720][height<=1440]+bestaudio/best[height>=720][height<=1440]"
	defaultOutputTemplate      = "%(title)s [%(id)s].%(ext)s"
	defaultSubLangs            = "zh-CN,zh-*,en-*,ja"
	defaultRateLimit           = "5M"
	defaultFetchRetries        = 10
	defaultRetrySleep          = 5
	defaultBufferSize          = "16K"
	defaultConcurrentFragments = 1
	defaultMatchThreshold      = 0.9
	defaultRequestsPerSecond   = 1.0
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Matching scorers.
const (
	ScorerRatio       = "ratio"
	ScorerLevenshtein = "levenshtein"
)

// Refresh failure policies.
const (
	// RefreshPolicyMarkDeleted treats any failed probe as a remote deletion.
	RefreshPolicyMarkDeleted = "mark_deleted"
	// RefreshPolicyClassify marks an entry deleted only when yt-dlp reports
	// the video as removed or private; other failures leave it untouched.
	RefreshPolicyClassify = "classify"
	// RefreshPolicyKeep never changes status on a failed probe.
	RefreshPolicyKeep = "keep"
)

// Ledger backends.
const (
	LedgerBackendCSV    = "csv"
	LedgerBackendSQLite = "sqlite"
)

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, "plarchive")
}

func defaultFinalDir() string {
	base := xdg.UserDirs.Videos
	if base == "" {
		base = filepath.Join(xdg.Home, "Videos")
	}
	return filepath.Join(base, "plarchive")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			TempDir:    filepath.Join(xdg.CacheHome, "plarchive", "temp"),
			FinalDir:   defaultFinalDir(),
			LedgerPath: filepath.Join(dataDir, "archive.csv"),
			ReportDir:  filepath.Join(dataDir, "reports"),
			LogDir:     filepath.Join(dataDir, "logs"),
		},
		Source: Source{
			PlaylistURL:  defaultPlaylistURL,
			Browser:      defaultBrowser,
			WatchURLBase: defaultWatchURLBase,
		},
		YtDlp: YtDlp{
			Binary:       defaultYtDlpBinary,
			ListTimeout:  defaultListTimeout,
			ListAttempts: defaultListAttempts,
			ProbeTimeout: defaultProbeTimeout,
			FetchTimeout: defaultFetchTimeout,
		},
		Fetch: Fetch{
			Format:              defaultFormat,
			OutputTemplate:      defaultOutputTemplate,
			WriteSubs:           true,
			SubLangs:            defaultSubLangs,
			EmbedThumbnail:      true,
			AddMetadata:         true,
			RateLimit:           defaultRateLimit,
			Retries:             defaultFetchRetries,
			RetrySleep:          defaultRetrySleep,
			BufferSize:          defaultBufferSize,
			ConcurrentFragments: defaultConcurrentFragments,
		},
		Matching: Matching{
			Threshold:  defaultMatchThreshold,
			Scorer:     ScorerRatio,
			Extensions: []string{".mp4", ".mkv", ".webm"},
		},
		Refresh: Refresh{
			FailurePolicy:     RefreshPolicyMarkDeleted,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Ledger: Ledger{
			Backend:    LedgerBackendCSV,
			SQLitePath: filepath.Join(dataDir, "archive.db"),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
