package cmd

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/ntfsstore/ntfs"
	"github.com/forensicanalysis/ntfsstore/ntfs/ntfstest"
)

func stdout(f func()) []byte {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	outC := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r) // nolint
		outC <- buf.Bytes()
	}()

	w.Close()
	os.Stdout = old
	return <-outC
}

// setup exports the streams of a small volume into a directory and
// extracts them into a new store.
func setup(t *testing.T, flags ...string) (string, string) {
	dir := t.TempDir()
	evidence := filepath.Join(dir, "export")
	if err := os.MkdirAll(evidence, 0700); err != nil {
		t.Fatal(err)
	}

	mft := ntfstest.Volume(
		ntfstest.Record{Number: 40, Sequence: 1, InUse: true, Directory: true, Names: []ntfstest.Name{{Parent: ntfstest.Ref(5, 5), Name: "dir", Namespace: 1}}},
		ntfstest.Record{Number: 41, Sequence: 2, InUse: true, Names: []ntfstest.Name{{Parent: ntfstest.Ref(40, 1), Name: "file.txt", Namespace: 1}}},
	)
	update := ntfstest.LogRecord{LSN: 0x3000, Redo: uint16(ntfs.OpUpdateResidentValue), TargetVCN: 10, ClusterBlockOffset: 2}
	logFile := ntfstest.LogFile(ntfstest.Restart{CurrentLSN: 0x3000, Client: "NTFS"}, ntfstest.RecordPages(update.Encode()))
	journal := ntfstest.UsnRecordV2(ntfstest.Usn{File: ntfstest.Ref(41, 2), Parent: ntfstest.Ref(40, 1), Usn: 0x10, Reason: 0x100, Name: "file.txt"})

	for name, data := range map[string][]byte{"$MFT": mft, "$LogFile": logFile, "$UsnJrnl_$J": journal} {
		if err := ioutil.WriteFile(filepath.Join(evidence, name), data, 0600); err != nil {
			t.Fatal(err)
		}
	}

	storePath := filepath.Join(dir, "case.db")
	args := append([]string{"--dir", evidence, "--case", "case", "--evidence", "disk01", "--temp-dir", filepath.Join(dir, "tmp")}, flags...)
	args = append(args, storePath)
	cmd := Extract()
	require.NoError(t, cmd.Flags().Parse(args))
	output := stdout(func() {
		require.NoError(t, cmd.RunE(cmd, cmd.Flags().Args()))
	})
	assert.Equal(t, "complete", gjson.GetBytes(output, "state").String(), string(output))
	return dir, storePath
}

func Test_extractCommand(t *testing.T) {
	_, storePath := setup(t)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no source", []string{"--case", "case", "--evidence", "disk01", storePath}, true},
		{"two sources", []string{"--dir", "a", "--image", "b", "--case", "case", "--evidence", "disk01", storePath}, true},
		{"no case", []string{"--dir", "a", "--evidence", "disk01", storePath}, true},
		{"bad policy", []string{"--dir", "a", "--case", "case", "--evidence", "disk01", "--name-policy", "all", storePath}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Extract()
			require.NoError(t, cmd.Flags().Parse(tt.args))
			err := cmd.RunE(cmd, cmd.Flags().Args())
			if (err != nil) != tt.wantErr {
				t.Errorf("extractCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_queryCommand(t *testing.T) {
	_, storePath := setup(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"field", []string{"--field", "path", "SELECT path FROM lv1_fs_ntfs_mft ORDER BY path", storePath}, "/\n/dir\n/dir/file.txt\n", false},
		{"json", []string{"SELECT state, rows FROM _partitions", storePath}, "[{\"rows\":7,\"state\":\"complete\"}]\n", false},
		{"bad sql", []string{"SELEKT 1", storePath}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Query()
			require.NoError(t, cmd.Flags().Parse(tt.args))

			output := stdout(func() {
				err := cmd.RunE(cmd, cmd.Flags().Args())
				if (err != nil) != tt.wantErr {
					t.Errorf("queryCommand() error = %v, wantErr %v", err, tt.wantErr)
				}
			})

			if string(output) != tt.want {
				t.Errorf("queryCommand got = %v, want %v", string(output), tt.want)
			}
		})
	}
}

func Test_selectCommand(t *testing.T) {
	_, storePath := setup(t)

	tests := []struct {
		name    string
		args    []string
		want    int64
		wantErr bool
	}{
		{"all", []string{"lv1_fs_ntfs_mft", storePath}, 3, false},
		{"where", []string{"--where", "path=/dir%", "lv1_fs_ntfs_mft", storePath}, 2, false},
		{"and", []string{"--where", "path=/dir%", "--where", "is_directory=1", "lv1_fs_ntfs_mft", storePath}, 1, false},
		{"journal", []string{"--where", "file_name=file.txt", "lv1_fs_ntfs_usnjrnl", storePath}, 1, false},
		{"bad condition", []string{"--where", "path", "lv1_fs_ntfs_mft", storePath}, 0, true},
		{"unknown table", []string{"files", storePath}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Select()
			require.NoError(t, cmd.Flags().Parse(tt.args))

			output := stdout(func() {
				err := cmd.RunE(cmd, cmd.Flags().Args())
				if (err != nil) != tt.wantErr {
					t.Errorf("selectCommand() error = %v, wantErr %v", err, tt.wantErr)
				}
			})

			if !tt.wantErr {
				assert.Equal(t, tt.want, gjson.GetBytes(output, "#").Int(), string(output))
			}
		})
	}
}

func Test_validateCommand(t *testing.T) {
	_, storePath := setup(t)

	cmd := Validate()
	output := stdout(func() {
		assert.NoError(t, requireOneStore(cmd, []string{storePath}))
		assert.NoError(t, cmd.RunE(cmd, []string{storePath}))
	})
	assert.Empty(t, string(output))

	assert.Error(t, requireOneStore(cmd, []string{filepath.Join(t.TempDir(), "missing.db")}))
}

func Test_createCommand(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "new.db")

	cmd := Create()
	assert.NoError(t, cmd.RunE(cmd, []string{storePath}))
	assert.FileExists(t, storePath)
	assert.Error(t, cmd.RunE(cmd, []string{storePath}))
}
