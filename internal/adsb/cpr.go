package adsb

import "math"

// CPR (Compact Position Reporting) decoding. These are pure functions:
// they carry no aircraft state, no timestamps, no logging. Callers
// (internal/tracker) own the even/odd frame pairing and the reference
// position used for local/surface decoding.

const cprMax = 131072.0 // 2^17

// cprModInt performs an always-positive modulo (dump1090 style; Go's %
// can return negative results for negative a).
func cprModInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

// NLTable returns the number of longitude zones NL(lat) for the given
// latitude, per the CPR specification's precomputed breakpoint table.
func NLTable(lat float64) int {
	absLat := math.Abs(lat)

	switch {
	case absLat < 10.47047130:
		return 59
	case absLat < 14.82817437:
		return 58
	case absLat < 18.18626357:
		return 57
	case absLat < 21.02939493:
		return 56
	case absLat < 23.54504487:
		return 55
	case absLat < 25.82924707:
		return 54
	case absLat < 27.93898710:
		return 53
	case absLat < 29.91135686:
		return 52
	case absLat < 31.77209708:
		return 51
	case absLat < 33.53993436:
		return 50
	case absLat < 35.22899598:
		return 49
	case absLat < 36.85025108:
		return 48
	case absLat < 38.41241892:
		return 47
	case absLat < 39.92256684:
		return 46
	case absLat < 41.38651832:
		return 45
	case absLat < 42.80914012:
		return 44
	case absLat < 44.19454951:
		return 43
	case absLat < 45.54626723:
		return 42
	case absLat < 46.86733252:
		return 41
	case absLat < 48.16039128:
		return 40
	case absLat < 49.42776439:
		return 39
	case absLat < 50.67150166:
		return 38
	case absLat < 51.89342469:
		return 37
	case absLat < 53.09516153:
		return 36
	case absLat < 54.27817472:
		return 35
	case absLat < 55.44378444:
		return 34
	case absLat < 56.59318756:
		return 33
	case absLat < 57.72747354:
		return 32
	case absLat < 58.84763776:
		return 31
	case absLat < 59.95459277:
		return 30
	case absLat < 61.04917774:
		return 29
	case absLat < 62.13216659:
		return 28
	case absLat < 63.20427479:
		return 27
	case absLat < 64.26616523:
		return 26
	case absLat < 65.31845310:
		return 25
	case absLat < 66.36171008:
		return 24
	case absLat < 67.39646774:
		return 23
	case absLat < 68.42322022:
		return 22
	case absLat < 69.44242631:
		return 21
	case absLat < 70.45451075:
		return 20
	case absLat < 71.45986473:
		return 19
	case absLat < 72.45884545:
		return 18
	case absLat < 73.45177442:
		return 17
	case absLat < 74.43893416:
		return 16
	case absLat < 75.42056257:
		return 15
	case absLat < 76.39684391:
		return 14
	case absLat < 77.36789461:
		return 13
	case absLat < 78.33374083:
		return 12
	case absLat < 79.29428225:
		return 11
	case absLat < 80.24923213:
		return 10
	case absLat < 81.19801349:
		return 9
	case absLat < 82.13956981:
		return 8
	case absLat < 83.07199445:
		return 7
	case absLat < 83.99173563:
		return 6
	case absLat < 84.89166191:
		return 5
	case absLat < 85.75541621:
		return 4
	case absLat < 86.53536998:
		return 3
	case absLat < 87.00000000:
		return 2
	default:
		return 1
	}
}

// cprN returns the number of longitude zones for a frame with the given
// odd/even flag, floored at 1.
func cprN(lat float64, oddFlag int) int {
	nl := NLTable(lat) - oddFlag
	if nl < 1 {
		nl = 1
	}
	return nl
}

func cprDlon(lat float64, oddFlag int) float64 {
	return 360.0 / float64(cprN(lat, oddFlag))
}

// CPRFrame is one raw even- or odd-format CPR position report.
type CPRFrame struct {
	LatCPR uint32
	LonCPR uint32
	Odd    bool
}

// GlobalAirbornePosition decodes an airborne position from a matched
// even/odd CPR frame pair with no reference position required. newerIsOdd
// selects which frame's longitude zone count governs the result, per the
// CPR spec's requirement to use the more recent frame. ok is false when
// the pair straddles a latitude zone boundary or produces an
// out-of-range latitude, in which case the caller should wait for a
// fresh pair.
func GlobalAirbornePosition(even, odd CPRFrame, newerIsOdd bool) (lat, lon float64, ok bool) {
	const dLat0 = 360.0 / 60.0
	const dLat1 = 360.0 / 59.0

	lat0 := float64(even.LatCPR)
	lat1 := float64(odd.LatCPR)
	lon0 := float64(even.LonCPR)
	lon1 := float64(odd.LonCPR)

	j := int(math.Floor(((59*lat0 - 60*lat1) / cprMax) + 0.5))

	rlat0 := dLat0 * (float64(cprModInt(j, 60)) + lat0/cprMax)
	rlat1 := dLat1 * (float64(cprModInt(j, 59)) + lat1/cprMax)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, false
	}

	if NLTable(rlat0) != NLTable(rlat1) {
		return 0, 0, false
	}

	var rlat, rlon float64
	if newerIsOdd {
		nl := NLTable(rlat1)
		ni := cprN(rlat1, 1)
		m := int(math.Floor((((lon0 * float64(nl-1)) - (lon1 * float64(nl))) / cprMax) + 0.5))
		rlon = cprDlon(rlat1, 1) * (float64(cprModInt(m, ni)) + lon1/cprMax)
		rlat = rlat1
	} else {
		nl := NLTable(rlat0)
		ni := cprN(rlat0, 0)
		m := int(math.Floor((((lon0 * float64(nl-1)) - (lon1 * float64(nl))) / cprMax) + 0.5))
		rlon = cprDlon(rlat0, 0) * (float64(cprModInt(m, ni)) + lon0/cprMax)
		rlat = rlat0
	}

	rlon -= math.Floor((rlon+180)/360) * 360

	return rlat, rlon, true
}

// LocalAirbornePosition decodes a single CPR frame relative to a known
// reference position (e.g. the aircraft's last confirmed fix, or the
// receiver's own location). It is less precise than the global decode
// near zone boundaries but needs only one frame. ok is false if the
// decoded latitude is out of range.
func LocalAirbornePosition(refLat, refLon float64, frame CPRFrame) (lat, lon float64, ok bool) {
	dlat := 360.0 / 60.0
	oddFlag := 0
	if frame.Odd {
		dlat = 360.0 / 59.0
		oddFlag = 1
	}

	latCPR := float64(frame.LatCPR)
	lonCPR := float64(frame.LonCPR)

	j := int(math.Floor(refLat/dlat + 0.5))
	rlat := dlat * (float64(j) + latCPR/cprMax)

	if rlat-refLat > dlat/2.0 {
		rlat -= dlat
	} else if rlat-refLat < -dlat/2.0 {
		rlat += dlat
	}

	if rlat < -90 || rlat > 90 {
		return 0, 0, false
	}

	ni := cprN(rlat, oddFlag)
	dlon := 360.0 / float64(ni)
	m := int(math.Floor(refLon/dlon + 0.5))
	rlon := dlon * (float64(m) + lonCPR/cprMax)

	if rlon-refLon > dlon/2.0 {
		rlon -= dlon
	} else if rlon-refLon < -dlon/2.0 {
		rlon += dlon
	}

	rlon -= math.Floor((rlon+180)/360) * 360

	return rlat, rlon, true
}

// GlobalSurfacePosition decodes a surface position from a matched
// even/odd CPR frame pair. Surface reports share the airborne global
// algorithm's zone math but the resulting longitude is ambiguous modulo
// 90 degrees (surface messages use a quarter-size CPR grid), so a
// reference position near the true location is required to resolve it.
func GlobalSurfacePosition(refLat, refLon float64, even, odd CPRFrame, newerIsOdd bool) (lat, lon float64, ok bool) {
	const dLat0 = 90.0 / 60.0
	const dLat1 = 90.0 / 59.0

	lat0 := float64(even.LatCPR)
	lat1 := float64(odd.LatCPR)
	lon0 := float64(even.LonCPR)
	lon1 := float64(odd.LonCPR)

	j := int(math.Floor(((59*lat0 - 60*lat1) / cprMax) + 0.5))

	rlat0 := dLat0 * (float64(cprModInt(j, 60)) + lat0/cprMax)
	rlat1 := dLat1 * (float64(cprModInt(j, 59)) + lat1/cprMax)

	// Surface latitude is only defined in the hemisphere of the
	// reference position; fold into range and pick the quadrant nearest
	// refLat.
	rlat0 = nearestSurfaceLat(rlat0, refLat)
	rlat1 = nearestSurfaceLat(rlat1, refLat)

	if NLTable(rlat0) != NLTable(rlat1) {
		return 0, 0, false
	}

	var rlat float64
	var nl, oddFlag int
	if newerIsOdd {
		rlat = rlat1
		nl = NLTable(rlat1)
		oddFlag = 1
	} else {
		rlat = rlat0
		nl = NLTable(rlat0)
		oddFlag = 0
	}

	ni := nl - oddFlag
	if ni < 1 {
		ni = 1
	}
	m := int(math.Floor((((lon0 * float64(nl-1)) - (lon1 * float64(nl))) / cprMax) + 0.5))
	dlon := 90.0 / float64(ni)

	var lonCPR float64
	if newerIsOdd {
		lonCPR = lon1
	} else {
		lonCPR = lon0
	}
	rlon := dlon * (float64(cprModInt(m, ni)) + lonCPR/cprMax)
	rlon = nearestSurfaceLon(rlon, refLon)

	return rlat, rlon, true
}

func nearestSurfaceLat(rlat, refLat float64) float64 {
	best := rlat
	bestDist := math.Abs(rlat - refLat)
	for _, cand := range []float64{rlat - 270, rlat - 180, rlat - 90, rlat + 90, rlat + 180, rlat + 270} {
		if d := math.Abs(cand - refLat); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func nearestSurfaceLon(rlon, refLon float64) float64 {
	best := rlon
	bestDist := math.Abs(rlon - refLon)
	for k := -3; k <= 3; k++ {
		cand := rlon + float64(k)*90
		if d := math.Abs(cand - refLon); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}
