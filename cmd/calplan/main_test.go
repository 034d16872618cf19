package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is a Tuesday.
var fixedNow = time.Date(2025, time.October, 14, 10, 0, 0, 0, time.UTC)

type cli struct {
	t      *testing.T
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFunc = prev })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\nbackup:\n  dir: "+filepath.Join(dir, "backups")+"\n"), 0o600))
	return &cli{t: t, dir: dir, config: path}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "calplan %v: %s", args, out)
	return out
}

var (
	createdRe = regexp.MustCompile(`created (\S+) on (\S+)`)
	idRe      = regexp.MustCompile(`id: ([0-9a-f-]{36})`)
)

const workICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup-1\r\n" +
	"DTSTAMP:20251001T000000Z\r\n" +
	"DTSTART:20251014T090000Z\r\n" +
	"DTEND:20251014T091500Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"CATEGORIES:Work\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestEventCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("add", "--title", "Standup", "--start", "09:00", "--end", "09:15", "--tag", "Focus")
	m := createdRe.FindStringSubmatch(out)
	require.Len(t, m, 3, out)
	id := m[1]
	assert.Equal(t, "2025-10-14", m[2])

	c.mustRun("add", "--date", "2025-10-14", "--title", "Lunch")

	out = c.mustRun("agenda", "--date", "2025-10-14")
	assert.Contains(t, out, "Tuesday, October 14")
	assert.Contains(t, out, "(2 events)")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "Lunch")

	out = c.mustRun("agenda", "--tag", "Focus")
	assert.Contains(t, out, "(1 event)")
	assert.NotContains(t, out, "Lunch")

	out = c.mustRun("edit", id, "--title", "Daily standup", "--end", "")
	assert.Contains(t, out, "updated "+id)
	out = c.mustRun("agenda")
	assert.Contains(t, out, "Daily standup")

	assert.Equal(t, "Focus\n", c.mustRun("tags"))
	assert.Contains(t, c.mustRun("tags", "--presets"), "Deep Work")

	out = c.mustRun("month", "--date", "2025-10-01")
	assert.Contains(t, out, "October 2025")
	assert.Contains(t, out, "Mon")

	c.mustRun("delete", id)
	_, err := c.run("delete", id)
	require.Error(t, err)
	_, err = c.run("edit", id, "--title", "x")
	require.Error(t, err)
}

func TestAddValidation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add")
	require.Error(t, err)
	_, err = c.run("add", "--title", "x", "--start", "25:00")
	require.Error(t, err)
	_, err = c.run("add", "--title", "x", "--tag", "Chores")
	require.Error(t, err)
	_, err = c.run("add", "--title", "x", "--date", "tomorrow")
	require.Error(t, err)

	assert.Empty(t, c.mustRun("tags"))
}

func TestExportImportBackup(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "--date", "2025-10-20", "--title", "Review", "--start", "14:00", "--end", "15:00", "--tag", "Learning")

	icsPath := filepath.Join(c.dir, "out.ics")
	out := c.mustRun("export", "--out", icsPath)
	assert.Contains(t, out, "exported 1 events")
	body, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Review")

	out = c.mustRun("import", icsPath, "--from", "2025-10-01", "--to", "2025-10-31")
	assert.Contains(t, out, "imported 1 events")

	out = c.mustRun("agenda", "--date", "2025-10-20")
	assert.Contains(t, out, "(2 events)")

	out = c.mustRun("import", icsPath, "--from", "2025-11-01", "--to", "2025-11-30")
	assert.Contains(t, out, "imported 0 events")

	_, err = c.run("import", filepath.Join(c.dir, "missing.ics"))
	require.Error(t, err)

	out = c.mustRun("backup")
	assert.Contains(t, out, filepath.Join(c.dir, "backups", "events-20251014T100000.json"))
	_, err = os.Stat(filepath.Join(c.dir, "backups", "events-20251014T100000.json"))
	require.NoError(t, err)
}

func TestEditImportedEventKeepsTag(t *testing.T) {
	c := newCLI(t)
	icsPath := filepath.Join(c.dir, "work.ics")
	require.NoError(t, os.WriteFile(icsPath, []byte(workICS), 0o600))

	out := c.mustRun("import", icsPath)
	assert.Contains(t, out, "imported 1 events")

	out = c.mustRun("agenda", "--date", "2025-10-14")
	m := idRe.FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out = c.mustRun("edit", m[1], "--title", "Team standup")
	assert.Contains(t, out, "updated "+m[1])
	assert.Equal(t, "Work\n", c.mustRun("tags"))

	_, err := c.run("edit", m[1], "--tag", "Chores")
	require.Error(t, err)
}

func TestConfigCreatedOnFirstRun(t *testing.T) {
	prev := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFunc = prev })

	dir := t.TempDir()
	path := filepath.Join(dir, "fresh", "config.yaml")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "tags"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "fresh", "data"))
	require.NoError(t, err)
}
