package services

import "testing"

func TestSplitFee(t *testing.T) {
	tests := []struct {
		gross          int64
		wantConsultant int64
		wantAdmin      int64
	}{
		{gross: 99900, wantConsultant: 69930, wantAdmin: 29970},
		{gross: 50000, wantConsultant: 35000, wantAdmin: 15000},
		{gross: 100, wantConsultant: 70, wantAdmin: 30},
		{gross: 1, wantConsultant: 0, wantAdmin: 1},
		{gross: 0, wantConsultant: 0, wantAdmin: 0},
	}

	for _, tt := range tests {
		consultant, admin := splitFee(tt.gross)
		if consultant != tt.wantConsultant || admin != tt.wantAdmin {
			t.Errorf("splitFee(%d) = (%d, %d), want (%d, %d)",
				tt.gross, consultant, admin, tt.wantConsultant, tt.wantAdmin)
		}
		if consultant+admin != tt.gross {
			t.Errorf("splitFee(%d) shares sum to %d", tt.gross, consultant+admin)
		}
	}
}
