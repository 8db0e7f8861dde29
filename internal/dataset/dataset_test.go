package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pksim/pksim/internal/simcore"
)

func TestNewGroupsAndSorts(t *testing.T) {
	recs := []Record{
		{ID: "2", Time: 0, Evid: EvidDose, Amt: 100, Cmt: 1},
		{ID: "1", Time: 12, Evid: EvidObservation, Cmt: 1},
		{ID: "1", Time: 0, Evid: EvidDose, Amt: 50, Cmt: 1},
	}

	d, err := New(recs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := d.IDs()
	if len(ids) != 2 || ids[0] != "2" || ids[1] != "1" {
		t.Errorf("expected first-appearance order [2 1], got %v", ids)
	}

	one := d.Records("1")
	if len(one) != 2 || one[0].Time != 0 || one[1].Time != 12 {
		t.Errorf("records not time-sorted: %+v", one)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"negative time", Record{ID: "1", Time: -1}},
		{"unknown evid", Record{ID: "1", Evid: 9}},
		{"bad dose compartment", Record{ID: "1", Evid: EvidDose, Cmt: 0}},
		{"negative rate", Record{ID: "1", Evid: EvidDose, Cmt: 1, Rate: -5}},
	}

	for _, tt := range tests {
		_, err := New([]Record{tt.rec}, nil)
		var dataErr *simcore.DataError
		if !errors.As(err, &dataErr) {
			t.Errorf("%s: expected DataError, got %v", tt.name, err)
		}
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	csv := "ID,TIME,EVID,AMT,CMT,RATE,WT\n" +
		"1,0,1,100,1,0,70\n" +
		"1,6,0,0,1,0,70\n" +
		"2,0,1,200,1,50,80\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if len(d.IDs()) != 2 {
		t.Fatalf("expected 2 individuals, got %v", d.IDs())
	}
	if !d.HasColumn("WT") {
		t.Error("expected WT as pass-through column")
	}

	one := d.Records("1")
	if one[0].Amt != 100 || one[0].Evid != EvidDose {
		t.Errorf("bad dose record: %+v", one[0])
	}
	if one[0].Extra["WT"] != 70 {
		t.Errorf("expected WT=70, got %v", one[0].Extra)
	}

	two := d.Records("2")
	if two[0].Rate != 50 {
		t.Errorf("expected infusion rate 50, got %g", two[0].Rate)
	}
}

func TestLoadCSVMissingRequiredColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("ID,AMT\n1,100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadCSV(path)
	if !errors.Is(err, simcore.ErrNoSuchColumn) {
		t.Errorf("expected missing-column error, got %v", err)
	}
}

func TestIDataLookup(t *testing.T) {
	idata := NewIData([]string{"WT", "GRP"}, []IRow{
		{ID: "1", Values: map[string]float64{"WT": 70, "GRP": 1}},
		{ID: "2", Values: map[string]float64{"WT": 80, "GRP": 2}},
	})

	if !idata.HasColumn("GRP") || idata.HasColumn("SEX") {
		t.Error("column lookup wrong")
	}

	v, ok := idata.Lookup("2", "WT")
	if !ok || v != 80 {
		t.Errorf("expected WT=80 for id 2, got %v ok=%v", v, ok)
	}

	if _, ok := idata.Lookup("9", "WT"); ok {
		t.Error("unknown individual should not resolve")
	}
}

func TestLoadIDataCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idata.csv")
	csv := "ID,WT,CL\n1,70,1.2\n2,80,0.9\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	idata, err := LoadIDataCSV(path)
	if err != nil {
		t.Fatalf("LoadIDataCSV: %v", err)
	}

	if v, _ := idata.Lookup("2", "CL"); v != 0.9 {
		t.Errorf("expected CL=0.9, got %g", v)
	}

	ids := idata.IDs()
	if len(ids) != 2 || ids[0] != "1" {
		t.Errorf("unexpected id order: %v", ids)
	}
}
