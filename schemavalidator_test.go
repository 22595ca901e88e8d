package ntfsstore

import (
	"testing"

	"github.com/forensicanalysis/ntfsstore/gostore"
)

func Test_validateSchema(t *testing.T) {
	cols, err := columns(gostore.PartitionStatus{})
	if err != nil {
		t.Fatal(err)
	}
	schema, err := tableSchema(PartitionTableName, cols)
	if err != nil {
		t.Fatal(err)
	}
	partitions := &table{name: PartitionTableName, columns: cols, schema: schema}

	tests := []struct {
		name      string
		element   JSONElement
		wantFlaws int
		wantErr   bool
	}{
		{"valid", JSONElement(`{"rowid": 1, "partition_id": "p1", "case_id": "c", "evidence_id": "e", "state": "complete", "rows": 3}`), 0, false},
		{"missing key", JSONElement(`{"rowid": 2, "partition_id": "p1", "case_id": "c", "state": "complete"}`), 1, false},
		{"empty key", JSONElement(`{"rowid": 3, "partition_id": "p1", "case_id": "", "evidence_id": "e", "state": "complete"}`), 1, false},
		{"bad state", JSONElement(`{"rowid": 4, "partition_id": "p1", "case_id": "c", "evidence_id": "e", "state": "done"}`), 1, false},
		{"wrong type", JSONElement(`{"rowid": 5, "partition_id": "p1", "case_id": "c", "evidence_id": "e", "state": "partial", "rows": "many"}`), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFlaws, err := validateSchema(partitions, tt.element)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSchema() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(gotFlaws) != tt.wantFlaws {
				t.Errorf("validateSchema() = %v, want %v", gotFlaws, tt.wantFlaws)
			}
		})
	}
}

func Test_rowLabel(t *testing.T) {
	if got := rowLabel(JSONElement(`{"rowid": 12, "partition_id": "abc"}`)); got != "abc#12" {
		t.Errorf("rowLabel() = %v, want abc#12", got)
	}
}
