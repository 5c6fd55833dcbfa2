package flightstatus

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbridge/generic"
)

const testProtocol = `<PropertyList><generic><output>
 <line_separator>newline</line_separator>
 <var_separator>,</var_separator>
 <chunk><name>ias</name><type>float</type></chunk>
 <chunk><name>alt</name><type>float</type></chunk>
 <chunk><name>true_heading</name><type>float</type></chunk>
 <chunk><name>onground</name><type>bool</type></chunk>
 <chunk><name>ap_disabled</name><type>bool</type></chunk>
 <chunk><name>n1</name><type>float</type><count>0</count></chunk>
 <chunk><name>n1</name><type>float</type><count>1</count></chunk>
 <chunk><name>navaid_freq-mul1000</name><count>0</count></chunk>
 <chunk><name>navaid_freq-mul1000</name><count>2</count></chunk>
 <chunk><name>navaid_id</name><type>string</type><count>0</count></chunk>
 <chunk><name>navaid_heading-deg</name><type>float</type><count>0</count></chunk>
 <chunk><name>navaid_toflag</name><type>bool</type><count>0</count></chunk>
 <chunk><name>navaid_fromflag</name><type>bool</type><count>0</count></chunk>
 <chunk><name>navaid_dme_valid</name><type>bool</type><count>0</count></chunk>
 <chunk><name>navaid_dme_range-nm</name><type>float</type><count>0</count></chunk>
 <chunk><name>fs_utc_dtg</name><type>string</type></chunk>
 <chunk><name>aircraft_type</name><type>string</type></chunk>
</output></generic></PropertyList>`

func TestLabelTable(t *testing.T) {
	labels := Labels()
	assert.Len(t, labels, 76)
	assert.Equal(t, "ias", labels[0])
	assert.Equal(t, "aircraft_type", labels[len(labels)-1])

	st := New()
	arrays := map[string]int{
		"ff-kgph": 4, "n2": 4, "n1": 4, "egt-degc": 4, "rpm": 4,
		"navaid_freq-mul1000": 4, "navaid_id": 4, "navaid_heading-deg": 4,
		"power_set": 4, "antiice": 4,
		"navaid_radial-deg": 2, "navaid_hneedle_defl": 2, "navaid_fromflag": 2,
		"navaid_toflag": 2, "navaid_hasloc": 2, "navaid_gsneedle_defl": 2,
		"navaid_hasgs": 2, "navaid_dme_valid": 2, "navaid_dme_range-nm": 2,
	}
	for _, l := range labels {
		h, ok := st.Lookup(l)
		require.True(t, ok, l)
		assert.Equal(t, arrays[l], st.ChildCount(h), l)
	}

	_, ok := st.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestStatusThroughGenericStream(t *testing.T) {
	st := New()
	schema, err := generic.Load(strings.NewReader(testProtocol), st)
	require.NoError(t, err)
	require.Equal(t, 17, schema.Size())

	stream := generic.NewStream(schema, st)
	res := stream.Feed([]byte("250.5,35000,90,0,0,88.5,87.25,110300,350,IKS,120,1,0,1,12.34,2024-03-21T10:07:57,A320\n"), false)
	require.True(t, res.OK())
	assert.Zero(t, res.FieldErrors)

	s := st.Snapshot()
	assert.Equal(t, 250.5, s.IAS)
	assert.Equal(t, 35000.0, s.AltitudeFt)
	assert.False(t, s.OnGround)
	assert.True(t, s.Autopilot.Enabled, "ap_disabled=0 means the autopilot is enabled")
	assert.Equal(t, 88.5, s.Engines[0].N1)
	assert.Equal(t, 87.25, s.Engines[1].N1)
	assert.Equal(t, 110300, s.Nav[0].FreqKHz)
	assert.Equal(t, 350, s.ADF[0].FreqKHz)
	assert.Equal(t, "IKS", s.Nav[0].ID)
	assert.Equal(t, 30.0, s.Nav[0].BearingDeg, "NAV bearing is relative to true heading")
	assert.Equal(t, ToFromTo, s.Nav[0].ToFrom)
	assert.Equal(t, "012.3", s.Nav[0].DME)
	assert.Equal(t, time.Date(2024, 3, 21, 10, 7, 57, 0, time.UTC), s.SimTimeUTC)
	assert.Equal(t, "A320", s.AircraftType)
	assert.False(t, s.UpdatedAt.IsZero(), "commit stamps the update time")
}

func TestStatusWriteHandleValidation(t *testing.T) {
	st := New()

	n1, _ := st.Lookup("n1")
	assert.ErrorIs(t, st.Write(n1, []byte("1"), generic.Real), ErrBadHandle, "array needs an element")
	assert.ErrorIs(t, st.Write(n1.Element(4), []byte("1"), generic.Real), ErrBadHandle)

	ias, _ := st.Lookup("ias")
	assert.ErrorIs(t, st.Write(ias.Element(0), []byte("1"), generic.Real), ErrBadHandle)
	assert.ErrorIs(t, st.Write(generic.SlotHandle(999), []byte("1"), generic.Real), ErrBadHandle)

	assert.Error(t, st.Write(ias, []byte("fast"), generic.Real))

	_, ok := st.Child(n1, 4)
	assert.False(t, ok)
}

func TestStatusConversions(t *testing.T) {
	tests := []struct {
		name  string
		label string
		index int
		raw   string
		typ   generic.ValueType
		check func(t *testing.T, s Snapshot)
	}{
		{"rpm scaled onto N1", "rpm", 2, "1750", generic.Real, func(t *testing.T, s Snapshot) {
			assert.InDelta(t, 99.995, s.Engines[2].N1, 1e-9)
		}},
		{"localizer needle", "navaid_hneedle_defl", 1, "5", generic.Real, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 63.5, s.Nav[1].LocNeedle)
		}},
		{"glideslope needle clamps", "navaid_gsneedle_defl", 0, "-2", generic.Real, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 127, s.Nav[0].GSNeedle)
		}},
		{"glideslope needle sign", "navaid_gsneedle_defl", 0, "0.2", generic.Real, func(t *testing.T, s Snapshot) {
			assert.Equal(t, -32, s.Nav[0].GSNeedle)
		}},
		{"adf bearing is absolute", "navaid_heading-deg", 3, "245", generic.Real, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 245.0, s.ADF[1].BearingDeg)
		}},
		{"adf ident", "navaid_id", 2, "BRK", generic.String, func(t *testing.T, s Snapshot) {
			assert.Equal(t, "BRK", s.ADF[0].ID)
		}},
		{"bool from number", "lights_beacon", 0, "1", generic.Int, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Lights.Beacon)
		}},
		{"bool from word", "lights_taxi", 0, "true", generic.Bool, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Lights.Taxi)
		}},
		{"number from string", "qnh-hpa", 0, "1013.25", generic.String, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 1013.25, s.QNHhPa)
		}},
		{"int typed label", "ap_alt", 0, "12000", generic.Int, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 12000.0, s.Autopilot.Altitude)
		}},
		{"engine anti ice", "antiice", 3, "1", generic.Bool, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Engines[3].AntiIce)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New()
			require.NoError(t, st.WriteLabel(tt.label, tt.index, []byte(tt.raw), tt.typ))
			tt.check(t, st.Snapshot())
		})
	}
}

func TestStatusRecordVisibleOnlyAfterCommit(t *testing.T) {
	st := New()
	lat, ok := st.Lookup("lat")
	require.True(t, ok)
	lon, ok := st.Lookup("lon")
	require.True(t, ok)

	require.NoError(t, st.Write(lat, []byte("51.4775"), generic.Real))
	assert.Zero(t, st.Snapshot().Lat, "half a record stays staged")

	require.NoError(t, st.Write(lon, []byte("-0.4614"), generic.Real))
	st.SetValid(true)
	st.Commit()

	s := st.Snapshot()
	assert.Equal(t, 51.4775, s.Lat)
	assert.Equal(t, -0.4614, s.Lon)
	assert.True(t, s.Valid, "commit keeps validity")
	assert.False(t, s.UpdatedAt.IsZero())
}

func TestStatusSnapshotNeverTorn(t *testing.T) {
	st := New()
	lat, _ := st.Lookup("lat")
	lon, _ := st.Lookup("lon")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 500; i++ {
			v := []byte(strconv.Itoa(i))
			_ = st.Write(lat, v, generic.Real)
			_ = st.Write(lon, v, generic.Real)
			st.Commit()
		}
	}()

	for {
		select {
		case <-done:
			assert.Equal(t, 500.0, st.Snapshot().Lon)
			return
		default:
			s := st.Snapshot()
			require.Equal(t, s.Lat, s.Lon, "lat and lon come from the same record")
		}
	}
}

func TestStatusBadSimTime(t *testing.T) {
	st := New()
	err := st.WriteLabel("fs_utc_dtg", 0, []byte("yesterday"), generic.String)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse sim time")
}

func TestStatusValidity(t *testing.T) {
	st := New()
	assert.False(t, st.Valid(), "starts invalid")

	st.SetValid(true)
	assert.True(t, st.Valid())
	assert.True(t, st.Snapshot().Valid)

	st.SetValid(false)
	assert.False(t, st.Valid())
}

func TestStatusUpdateStampsTime(t *testing.T) {
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	st := New()
	st.now = func() time.Time { return fixed }

	st.Update(func(s *Snapshot) { s.AltitudeFt = 5000 })

	assert.Equal(t, fixed, st.LastUpdate())
	assert.Equal(t, 5000.0, st.Snapshot().AltitudeFt)
}

func TestStatusConcurrentAccess(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = st.WriteLabel("alt", 0, []byte("1000"), generic.Real)
				st.Commit()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = st.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000.0, st.Snapshot().AltitudeFt)
}

func TestFuelOnBoard(t *testing.T) {
	assert.Equal(t, 12000.0, Snapshot{TotalWeightKg: 62000, ZeroFuelWeightKg: 50000}.FuelOnBoardKg())
	assert.Zero(t, Snapshot{TotalWeightKg: 100, ZeroFuelWeightKg: 200}.FuelOnBoardKg())
}
