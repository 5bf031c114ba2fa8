package processor

import (
	"math"
	"time"

	"VRADelays/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// 规范列名
const (
	ColAirline            = "cia_icao"
	ColNumber             = "numero_voo"
	ColAuthorization      = "codigo_autorizacao"
	ColLineType           = "codigo_tipo_linha"
	ColOrigin             = "origem_icao"
	ColDestination        = "destino_icao"
	ColScheduledDeparture = "partida_prevista"
	ColActualDeparture    = "partida_real"
	ColScheduledArrival   = "chegada_prevista"
	ColActualArrival      = "chegada_real"
	ColStatus             = "situacao_voo"
	ColJustification      = "codigo_justificativa"

	ColRoute = "rota"
	ColYear  = "ano"
	ColMonth = "mes"
)

// TimeColumns 参与解析的时间列
var TimeColumns = []string{ColScheduledDeparture, ColActualDeparture, ColScheduledArrival, ColActualArrival}

// Flight 一条VRA航班记录,缺失的时间为零值
type Flight struct {
	Airline     string
	Number      string
	Origin      string
	Destination string
	Status      string

	ScheduledDeparture time.Time
	ActualDeparture    time.Time
	ScheduledArrival   time.Time
	ActualArrival      time.Time
}

// DelayMinutes 优先按到达计算(实际-计划),否则按起飞;都不完整时不可测
func (f Flight) DelayMinutes() (float64, bool) {
	if !f.ScheduledArrival.IsZero() && !f.ActualArrival.IsZero() {
		return f.ActualArrival.Sub(f.ScheduledArrival).Minutes(), true
	}
	if !f.ScheduledDeparture.IsZero() && !f.ActualDeparture.IsZero() {
		return f.ActualDeparture.Sub(f.ScheduledDeparture).Minutes(), true
	}
	return math.NaN(), false
}

// IsDelayed 延误严格大于阈值;第二个返回值表示是否可测
func (f Flight) IsDelayed(onTimeMin int) (bool, bool) {
	d, ok := f.DelayMinutes()
	if !ok {
		return false, false
	}
	return d > float64(onTimeMin), true
}

// ReferenceTime 计划起飞、计划到达、实际起飞、实际到达中第一个存在的
func (f Flight) ReferenceTime() time.Time {
	for _, t := range []time.Time{f.ScheduledDeparture, f.ScheduledArrival, f.ActualDeparture, f.ActualArrival} {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// ToFlights DataFrame转航班记录;无法解析的时间按缺失处理,返回被置空的单元格数
func ToFlights(df dataframe.DataFrame, layouts []string) ([]Flight, int) {
	n := df.Nrow()
	str := func(col string) []string {
		if !utils.HasColumn(df, col) {
			return make([]string, n)
		}
		vals := df.Col(col).Records()
		for i, v := range vals {
			if utils.IsMissing(v) {
				vals[i] = ""
			}
		}
		return vals
	}

	coerced := 0
	times := func(col string) []time.Time {
		out := make([]time.Time, n)
		for i, v := range str(col) {
			t, err := utils.ParseTime(v, layouts)
			if err != nil {
				coerced++
				continue
			}
			out[i] = t
		}
		return out
	}

	airline, number := str(ColAirline), str(ColNumber)
	origin, dest, status := str(ColOrigin), str(ColDestination), str(ColStatus)
	sdep, adep := times(ColScheduledDeparture), times(ColActualDeparture)
	sarr, aarr := times(ColScheduledArrival), times(ColActualArrival)

	flights := make([]Flight, n)
	for i := 0; i < n; i++ {
		flights[i] = Flight{
			Airline:            airline[i],
			Number:             number[i],
			Origin:             origin[i],
			Destination:        dest[i],
			Status:             status[i],
			ScheduledDeparture: sdep[i],
			ActualDeparture:    adep[i],
			ScheduledArrival:   sarr[i],
			ActualArrival:      aarr[i],
		}
	}
	return flights, coerced
}
