package engine

import (
	"reflect"
	"testing"

	"shiftline/internal/config"
	"shiftline/internal/domain"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

// goodFS is a fact sheet with nothing wrong: active, credentials far from
// expiry, privileged at FAC-1, enrolled with one payer.
func goodFS() domain.ProviderFactSheet {
	return domain.ProviderFactSheet{
		ProviderID:              "PROV-100",
		ProviderName:            "Test Provider",
		ProviderStatus:          "ACTIVE",
		LicenseStatus:           strPtr("ACTIVE"),
		LicenseDaysLeft:         intPtr(365),
		ACLSStatus:              strPtr("ACTIVE"),
		ACLSDaysLeft:            intPtr(365),
		ActivePrivilegeCount:    1,
		ActivePayerCount:        1,
		PrivilegeFacilityCounts: map[string]int{"FAC-1": 1},
	}
}

func TestBlockerRules(t *testing.T) {
	cfg := config.Default()

	cases := []struct {
		name       string
		mutate     func(*domain.ProviderFactSheet)
		facilityID string
		suppressed classSet
		want       []domain.BlockerKind
	}{
		{
			name:   "all clear",
			mutate: func(fs *domain.ProviderFactSheet) {},
		},
		{
			name:   "inactive status",
			mutate: func(fs *domain.ProviderFactSheet) { fs.ProviderStatus = "INACTIVE" },
			want:   []domain.BlockerKind{domain.BlockerStatusInactive},
		},
		{
			name:   "on leave counts as inactive",
			mutate: func(fs *domain.ProviderFactSheet) { fs.ProviderStatus = "ON_LEAVE" },
			want:   []domain.BlockerKind{domain.BlockerStatusInactive},
		},
		{
			name:   "license expired by days",
			mutate: func(fs *domain.ProviderFactSheet) { fs.LicenseDaysLeft = intPtr(-5) },
			want:   []domain.BlockerKind{domain.BlockerLicenseExpired},
		},
		{
			name: "license expired by status with unknown days",
			mutate: func(fs *domain.ProviderFactSheet) {
				fs.LicenseStatus = strPtr("EXPIRED")
				fs.LicenseDaysLeft = nil
			},
			want: []domain.BlockerKind{domain.BlockerLicenseExpired},
		},
		{
			name:   "license expiring today is expired",
			mutate: func(fs *domain.ProviderFactSheet) { fs.LicenseDaysLeft = intPtr(0) },
			want:   []domain.BlockerKind{domain.BlockerLicenseExpired},
		},
		{
			name:   "license inside expiring window",
			mutate: func(fs *domain.ProviderFactSheet) { fs.LicenseDaysLeft = intPtr(15) },
			want:   []domain.BlockerKind{domain.BlockerLicenseExpiring},
		},
		{
			name:   "license at window boundary",
			mutate: func(fs *domain.ProviderFactSheet) { fs.LicenseDaysLeft = intPtr(30) },
			want:   []domain.BlockerKind{domain.BlockerLicenseExpiring},
		},
		{
			name:   "license just outside window",
			mutate: func(fs *domain.ProviderFactSheet) { fs.LicenseDaysLeft = intPtr(31) },
		},
		{
			name: "unknown license is not a blocker",
			mutate: func(fs *domain.ProviderFactSheet) {
				fs.LicenseStatus = nil
				fs.LicenseDaysLeft = nil
			},
		},
		{
			name:   "acls expiring",
			mutate: func(fs *domain.ProviderFactSheet) { fs.ACLSDaysLeft = intPtr(10) },
			want:   []domain.BlockerKind{domain.BlockerACLSExpiring},
		},
		{
			name: "no privileges anywhere",
			mutate: func(fs *domain.ProviderFactSheet) {
				fs.ActivePrivilegeCount = 0
				fs.PrivilegeFacilityCounts = nil
			},
			want: []domain.BlockerKind{domain.BlockerNoPrivilege},
		},
		{
			name:       "privileged elsewhere but not at target facility",
			mutate:     func(fs *domain.ProviderFactSheet) {},
			facilityID: "FAC-2",
			want:       []domain.BlockerKind{domain.BlockerNoPrivilege},
		},
		{
			name:       "privileged at target facility",
			mutate:     func(fs *domain.ProviderFactSheet) {},
			facilityID: "FAC-1",
		},
		{
			name:   "no payer enrollment",
			mutate: func(fs *domain.ProviderFactSheet) { fs.ActivePayerCount = 0 },
			want:   []domain.BlockerKind{domain.BlockerNoPayerEnrollment},
		},
		{
			name: "multiple blockers fire in declaration order",
			mutate: func(fs *domain.ProviderFactSheet) {
				fs.ProviderStatus = "INACTIVE"
				fs.LicenseDaysLeft = intPtr(-1)
				fs.ActivePayerCount = 0
			},
			want: []domain.BlockerKind{
				domain.BlockerStatusInactive,
				domain.BlockerLicenseExpired,
				domain.BlockerNoPayerEnrollment,
			},
		},
		{
			name: "license override clears only the license class",
			mutate: func(fs *domain.ProviderFactSheet) {
				fs.LicenseDaysLeft = intPtr(-1)
				fs.ACLSDaysLeft = intPtr(5)
			},
			suppressed: classSet{classLicense: true},
			want:       []domain.BlockerKind{domain.BlockerACLSExpiring},
		},
		{
			name:       "status inactive is never suppressible",
			mutate:     func(fs *domain.ProviderFactSheet) { fs.ProviderStatus = "INACTIVE" },
			suppressed: classSet{classStatus: true, classLicense: true, classACLS: true, classPrivilege: true, classPayer: true},
			want:       []domain.BlockerKind{domain.BlockerStatusInactive},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := goodFS()
			tc.mutate(&fs)
			got := evaluateBlockers(cfg, fs, tc.facilityID, tc.suppressed)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("blockers = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpiredAndExpiringAreExclusive(t *testing.T) {
	cfg := config.Default()
	fs := goodFS()
	fs.LicenseStatus = strPtr("EXPIRED")
	fs.LicenseDaysLeft = intPtr(10) // stale feed: status says expired, days say soon

	got := evaluateBlockers(cfg, fs, "", nil)
	want := []domain.BlockerKind{domain.BlockerLicenseExpired}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("blockers = %v, want %v", got, want)
	}
}
