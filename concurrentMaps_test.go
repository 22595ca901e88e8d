package ntfsstore

import (
	"reflect"
	"sync"
	"testing"
)

func Test_tableMap_store(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
		want   []string
	}{
		{"empty", nil, nil},
		{"sorted", []string{"usn", "mft", "logfile"}, []string{"logfile", "mft", "usn"}},
		{"replace", []string{"mft", "mft"}, []string{"mft"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := newTableMap()
			for _, name := range tt.tables {
				tm.store(&table{name: name})
			}
			if got := tm.names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_tableMap_concurrent(t *testing.T) {
	tm := newTableMap()
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			tm.store(&table{name: name})
			if _, ok := tm.load(name); !ok {
				t.Errorf("load(%s) failed", name)
			}
		}(name)
	}
	wg.Wait()
	if _, ok := tm.load("e"); ok {
		t.Errorf("load(e) found unknown table")
	}
	if got := len(tm.names()); got != 4 {
		t.Errorf("names() has %d tables, want 4", got)
	}
}
