// =============================================================================
// SPED Toolkit - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the commands that write
// something to disk:
//   - Output file naming
//   - Safe writes (temporary file + rename)
//   - Backups of files about to be overwritten
//   - Warning log generation
//
// OVERWRITE STRATEGY:
//   - Outputs are written to a temporary file in the target directory and
//     renamed into place, so a failed write never leaves a truncated file
//   - When the target exists and backups are enabled, it is first copied to
//     "<name>.bak"
//   - The input SPED file is never modified unless it is the explicit
//     output path
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles output files for the toolkit.
type FileManager struct {
	// OutputDir is the directory where generated files are placed when no
	// explicit path is given.
	OutputDir string

	// NameFormat is the output name format, see GenerateOutputFileName.
	NameFormat string

	// BackupExisting copies a file to "<name>.bak" before overwriting it.
	BackupExisting bool
}

// NewFileManager creates a new FileManager.
func NewFileManager(outputDir, nameFormat string) *FileManager {
	return &FileManager{
		OutputDir:      outputDir,
		NameFormat:     nameFormat,
		BackupExisting: true,
	}
}

// OutputPath returns the path for a generated file.
//
// PARAMETERS:
//   - explicit: A path given by the user. When set it is returned as is.
//   - input: The SPED file the output derives from.
//   - params: Extra placeholder values (e.g. "type").
//   - ext: The extension to enforce, with its dot.
func (fm *FileManager) OutputPath(explicit, input string, params map[string]string, ext string) string {
	if explicit != "" {
		return explicit
	}

	all := map[string]string{
		"original": strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)),
	}
	for k, v := range params {
		all[k] = v
	}
	return filepath.Join(fm.OutputDir, GenerateOutputFileName(fm.NameFormat, all, ext))
}

// WriteOutput writes data to path, creating the directory and backing up
// an existing file first when BackupExisting is set.
//
// RETURNS:
//   - The backup path, empty when no backup was made.
//   - An error if any step fails; the previous file is left in place.
func (fm *FileManager) WriteOutput(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	backup := ""
	if fm.BackupExisting && FileExists(path) {
		backup = path + ".bak"
		if err := copyFile(path, backup); err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", path, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}

	return backup, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {original}  - Original file name (without extension)
//               {type}      - Record type
//   - params: A map of placeholder values.
//   - ext: The extension to enforce, e.g. ".txt".
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "sped_{type}_{timestamp}"
//   params: {"type": "C170"}
//   ext:    ".txt"
//   output: "sped_C170_20240115_143022.txt"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Placeholders with empty values leave doubled or dangling separators.
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_")
	if result == "" {
		result = "sped"
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// WARNING LOG GENERATION
// =============================================================================

// WarningLog describes one operation that produced per-line warnings.
type WarningLog struct {
	// FileName is the SPED file the warnings refer to.
	FileName string

	// Operation names what was being done, e.g. "edit C170.CFOP".
	Operation string

	Warnings []types.Warning
}

// WriteWarningLog writes warnings to a log file in outputDir.
//
// RETURNS:
//   - The path to the log file, empty when there is nothing to write.
//   - An error if writing fails.
func WriteWarningLog(log WarningLog, outputDir string) (string, error) {
	if len(log.Warnings) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("warnings_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create warning log: %w", err)
	}
	defer file.Close()

	if err := writeWarnings(file, log); err != nil {
		return "", fmt.Errorf("failed to write warning log: %w", err)
	}
	return logPath, nil
}

func writeWarnings(w io.Writer, log WarningLog) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "SPED Toolkit - Warning Log\n"+
		"Generated: %s\n"+
		"File:      %s\n"+
		"Operation: %s\n"+
		"Warnings:  %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		log.FileName,
		log.Operation,
		len(log.Warnings))

	for _, warning := range log.Warnings {
		fmt.Fprintf(writer, "  %s\n", warning)
	}

	writer.WriteString("\n================================================================================\n" +
		"End of Warning Log\n")

	return writer.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
