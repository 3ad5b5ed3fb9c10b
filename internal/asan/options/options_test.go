package options

import "testing"

func TestParseOverridesDefaults(t *testing.T) {
	o := Parse("redzone_size=32:quarantine_size_mb=64:lazy_shadow=true", Defaults())
	if o.RedzoneSize != 32 {
		t.Errorf("RedzoneSize = %d, want 32", o.RedzoneSize)
	}
	if o.QuarantineSizeMB != 64 {
		t.Errorf("QuarantineSizeMB = %d, want 64", o.QuarantineSizeMB)
	}
	if !o.LazyShadow {
		t.Error("LazyShadow = false, want true")
	}
	if o.HandleSEGV != Defaults().HandleSEGV {
		t.Error("unrelated field should keep its default")
	}
}

func TestParseIgnoresMalformedEntries(t *testing.T) {
	o := Parse("not_a_pair:redzone_size=notanumber:verbosity=2", Defaults())
	if o.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", o.Verbosity)
	}
	if o.RedzoneSize != Defaults().RedzoneSize {
		t.Error("invalid value should leave default in place")
	}
}

func TestParseEmptyStringIsDefaults(t *testing.T) {
	o := Parse("", Defaults())
	if o != Defaults() {
		t.Error("empty options string should leave defaults unchanged")
	}
}

func TestParseRejectsRedzoneSizeBelowFloor(t *testing.T) {
	o := Parse("redzone_size=16", Defaults())
	if o.RedzoneSize != Defaults().RedzoneSize {
		t.Errorf("RedzoneSize = %d, want default %d (16 is below the 32-byte floor)", o.RedzoneSize, Defaults().RedzoneSize)
	}
}

func TestParseUnknownKeyIgnored(t *testing.T) {
	o := Parse("not_a_real_option=5", Defaults())
	if o != Defaults() {
		t.Error("unknown key should be ignored, not change any field")
	}
}
