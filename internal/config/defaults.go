package config

const (
	defaultConfigPath         = "~/.config/montage/config.toml"
	defaultScratchDir         = "~/.local/share/montage/scratch"
	defaultUploadDir          = "~/.local/share/montage/uploads"
	defaultOutputDir          = "~/.local/share/montage/outputs"
	defaultLogDir             = "~/.local/share/montage/logs"
	defaultAPIBind            = "127.0.0.1:8000"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultVideoCodec         = "libx264"
	defaultAudioCodec         = "aac"
	defaultPreset             = "veryfast"
	defaultCRF                = 23
	defaultAudioBitrate       = "192k"
	defaultPixelFormat        = "yuv420p"
	defaultFrameRate          = 30
	defaultStageTimeout       = 1800
	defaultMaxConcurrent      = 2
	defaultFontName           = "Arial"
	defaultFontSize           = 24
	defaultOutlineColour      = "&H80000000"
	defaultBorderStyle        = 3
	defaultOutline            = 1
	defaultShadow             = 1
	defaultAlignment          = 2
	defaultMarginV            = 20
	defaultWorkers            = 2
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxUploadMiB       = 2048
	defaultCleanupSchedule    = "0 */30 * * * *"
	defaultScratchMaxAgeHours = 6
	defaultUploadMaxAgeHours  = 24
	defaultMinFreeGiB         = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Concat strategies accepted by engine.concat_strategy.
const (
	ConcatReencode = "reencode"
	ConcatCopy     = "copy"
	ConcatAuto     = "auto"
)

var (
	defaultAudioExt = []string{".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg"}
	defaultVideoExt = []string{".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			UploadDir:  defaultUploadDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Engine: Engine{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			VideoCodec:     defaultVideoCodec,
			AudioCodec:     defaultAudioCodec,
			Preset:         defaultPreset,
			CRF:            defaultCRF,
			AudioBitrate:   defaultAudioBitrate,
			PixelFormat:    defaultPixelFormat,
			FrameRate:      defaultFrameRate,
			ConcatStrategy: ConcatReencode,
			StageTimeout:   defaultStageTimeout,
			MaxConcurrent:  defaultMaxConcurrent,
		},
		Subtitles: Subtitles{
			FontName:      defaultFontName,
			FontSize:      defaultFontSize,
			OutlineColour: defaultOutlineColour,
			BorderStyle:   defaultBorderStyle,
			Outline:       defaultOutline,
			Shadow:        defaultShadow,
			Alignment:     defaultAlignment,
			MarginV:       defaultMarginV,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		API: API{
			MaxUploadMiB:    defaultMaxUploadMiB,
			CORSOrigins:     []string{"*"},
			AllowedAudioExt: append([]string(nil), defaultAudioExt...),
			AllowedVideoExt: append([]string(nil), defaultVideoExt...),
		},
		Retention: Retention{
			CleanupSchedule:    defaultCleanupSchedule,
			ScratchMaxAgeHours: defaultScratchMaxAgeHours,
			UploadMaxAgeHours:  defaultUploadMaxAgeHours,
			MinFreeGiB:         defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
