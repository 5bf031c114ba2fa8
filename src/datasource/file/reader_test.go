package file

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func gz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadVRAFile_JSONVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		rows    int
		format  string
	}{
		{"array", `[{"ICAOAeródromoOrigem":"SBGR","ICAOAeródromoDestino":"SBRJ"},{"ICAOAeródromoOrigem":"KJFK","ICAOAeródromoDestino":"SBGR"}]`, 2, "json"},
		{"ndjson", "{\"a\":1}\n{\"a\":2}\n\n{\"a\":3}\n", 3, "ndjson"},
		{"glued objects", `{"a":1}{"a":2} {"a":3}`, 3, "json"},
		{"missing brackets and trailing comma", `{"a":1},{"a":2},`, 2, "json"},
		{"array with trailing comma", `[{"a":1},{"a":2},]`, 2, "json"},
		{"flat objects inside garbage", `lixo {"a":1} ### {"a":2} {quebrado`, 2, "json"},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFixture(t, dir, "VRA_202201.json", []byte(tt.content))
			res, err := ReadVRAFile(p, "")
			require.NoError(t, err)
			assert.Equal(t, tt.rows, res.Rows())
			assert.Equal(t, tt.format, res.Format)
		})
	}
}

func TestReadVRAFile_JSONValues(t *testing.T) {
	p := writeFixture(t, t.TempDir(), "VRA_202201.json",
		[]byte(`[{"numero_voo": 1234, "chegada_real": null, "cia_icao": "GLO"}]`))

	res, err := ReadVRAFile(p, "")
	require.NoError(t, err)
	df := res.Data
	assert.Equal(t, "1234", df.Col("numero_voo").Elem(0).String())
	assert.True(t, df.Col("chegada_real").Elem(0).IsNA())
	assert.Equal(t, "GLO", df.Col("cia_icao").Elem(0).String())
}

func TestReadVRAFile_Uninterpretable(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"VRA_202201.json": "isto não é json",
		"VRA_202202.csv":  "   \n",
		"VRA_202203.csv":  "a,b\n",
	} {
		p := writeFixture(t, dir, name, []byte(content))
		_, err := ReadVRAFile(p, "")
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrUninterpretable, name)
	}
}

func TestReadVRAFile_IOErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadVRAFile(filepath.Join(dir, "nao_existe.csv"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrUninterpretable)

	p := writeFixture(t, dir, "VRA_202201.csv.gz", []byte("não é gzip"))
	_, err = ReadVRAFile(p, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUninterpretable)
	assert.Contains(t, err.Error(), "descompactar "+p)
}

func TestReadVRAFile_ErrorText(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nao_existe.csv")
	empty := writeFixture(t, dir, "VRA_202201.csv", []byte("  "))

	_, ioErr := ReadVRAFile(missing, "")
	require.Error(t, ioErr)
	assert.Contains(t, ioErr.Error(), "ler "+missing)

	_, emptyErr := ReadVRAFile(empty, "")
	require.Error(t, emptyErr)
	assert.Equal(t, empty+": arquivo vazio: "+ErrUninterpretable.Error(), emptyErr.Error())

	// 整条错误链使用同一种语言
	for _, err := range []error{ioErr, emptyErr} {
		for _, r := range err.Error() {
			assert.False(t, unicode.Is(unicode.Han, r), err.Error())
		}
	}
}

func TestReadVRAFile_CSV(t *testing.T) {
	dir := t.TempDir()

	t.Run("semicolon with malformed row", func(t *testing.T) {
		content := "ICAOAeródromoOrigem;ICAOAeródromoDestino;ChegadaReal\nSBGR;SBRJ;2022-01-01 10:00:00\nSBGR;SBRJ\nSBSP;SBPA;\n"
		res, err := ReadVRAFile(writeFixture(t, dir, "VRA_202201.csv", []byte(content)), "")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Rows())
		assert.Equal(t, 1, res.Malformed)
		assert.Equal(t, []string{"ICAOAeródromoOrigem", "ICAOAeródromoDestino", "ChegadaReal"}, res.Data.Names())
		assert.True(t, res.Data.Col("ChegadaReal").Elem(1).IsNA())
	})

	t.Run("latin1 with bom-less header", func(t *testing.T) {
		latin, err := charmap.ISO8859_1.NewEncoder().String("SituaçãoVoo,cia_icao\nREALIZADO,AZU\n")
		require.NoError(t, err)
		res, err := ReadVRAFile(writeFixture(t, dir, "VRA_202202.csv", []byte(latin)), "")
		require.NoError(t, err)
		assert.Equal(t, "SituaçãoVoo", res.Data.Names()[0])
	})

	t.Run("utf8 bom and gzip", func(t *testing.T) {
		content := append([]byte("\xef\xbb\xbf"), []byte("origem_icao,destino_icao\nSBGR,SBRJ\n")...)
		res, err := ReadVRAFile(writeFixture(t, dir, "voos.csv.gz", gz(t, content)), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"origem_icao", "destino_icao"}, res.Data.Names())
		assert.Equal(t, 1, res.Rows())
	})

	t.Run("no extension sniffed", func(t *testing.T) {
		res, err := ReadVRAFile(writeFixture(t, dir, "VRA_202203", []byte("{\"a\":1}\n{\"a\":2}\n")), "")
		require.NoError(t, err)
		assert.Equal(t, "ndjson", res.Format)

		res, err = ReadVRAFile(writeFixture(t, dir, "VRA_202204", []byte("a,b\n1,2\n")), "")
		require.NoError(t, err)
		assert.Equal(t, "csv", res.Format)
	})
}

func TestReadVRAFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"ICAOAeródromoOrigem", "ICAOAeródromoDestino", "ChegadaPrevista", "NúmeroVoo"},
		{"SBGR", "SBRJ", 45000.5, 1234},
		{nil, nil, nil, nil},
		{"SBSP", "SBPA", "2023-03-15 13:00:00", 99},
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	p := writeFixture(t, t.TempDir(), "VRA_202303.xlsx", buf.Bytes())
	res, err := ReadVRAFile(p, "")
	require.NoError(t, err)

	assert.Equal(t, "xlsx", res.Format)
	assert.Equal(t, 2, res.Rows())
	assert.Equal(t, "2023-03-15 12:00:00", res.Data.Col("ChegadaPrevista").Elem(0).String())
	assert.Equal(t, "2023-03-15 13:00:00", res.Data.Col("ChegadaPrevista").Elem(1).String())
	assert.Equal(t, "1234", res.Data.Col("NúmeroVoo").Elem(0).String())

	_, err = ReadVRAFile(writeFixture(t, t.TempDir(), "VRA_202304.xlsx", []byte("PK quebrado")), "")
	assert.ErrorIs(t, err, ErrUninterpretable)
}

func TestRepairJSON(t *testing.T) {
	assert.Equal(t, `[{"a":1},{"a":2}]`, repairJSON(`{"a":1}{"a":2}`))
	assert.Equal(t, `[{"a":1},{"a":2}]`, repairJSON(`[{"a":1},{"a":2},`))
}
