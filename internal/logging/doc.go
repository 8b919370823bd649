// Package logging builds the slog loggers montage components share.
//
// New and NewFile pick a console or JSON handler and fan output out to
// stdout, stderr or files. WithContext copies the job scope carried by a
// context onto a logger, and WarnWithContext/ErrorWithContext fill in the
// event_type and error_hint fields operators filter on.
package logging
