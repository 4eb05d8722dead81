// Package checkpoint saves the position of a crawl session so a later
// process can continue it after a block or a crash. A checkpoint records:
//   - the cities, companies and page limit the run was started with
//   - the index of the target in progress and its live crawl state
//   - the result files of targets that were already finalized
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/peoplescraper/checkpoints/
//   - macOS: ~/Library/Application Support/peoplescraper/checkpoints/
//   - Windows: %APPDATA%/peoplescraper/checkpoints/
//
// Files are written atomically and carry a version number.
package checkpoint
