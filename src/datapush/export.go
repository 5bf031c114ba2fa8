package datapush

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"VRADelays/src/config"

	"github.com/go-gota/gota/dataframe"
)

// 输出格式
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatBoth = "both"
)

// WriteCleaned 按配置写出清洗结果,返回写出的文件路径
func WriteCleaned(df dataframe.DataFrame, dir, base string, cfg config.CleanConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("criar diretório de saída %s: %w", dir, err)
	}

	var paths []string
	if cfg.Format == FormatCSV || cfg.Format == FormatBoth {
		path := filepath.Join(dir, base+".csv")
		if cfg.Gzip {
			path += ".gz"
		}
		if err := writeFile(path, cfg.Gzip, func(w io.Writer) error { return WriteCSV(w, df) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if cfg.Format == FormatJSON || cfg.Format == FormatBoth {
		ext, write := ".json", WriteJSON
		if cfg.NDJSON {
			ext, write = ".ndjson", WriteNDJSON
		}
		path := filepath.Join(dir, base+ext)
		if cfg.Gzip {
			path += ".gz"
		}
		if err := writeFile(path, cfg.Gzip, func(w io.Writer) error { return write(w, df) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCSV 缺失值写成空单元格
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	records := df.Records()
	for r := 1; r < len(records); r++ {
		for c := range records[r] {
			if df.Elem(r-1, c).IsNA() {
				records[r][c] = ""
			}
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("gravar CSV: %w", err)
	}
	return nil
}

// WriteJSON 对象数组,缺失值为null
func WriteJSON(w io.Writer, df dataframe.DataFrame) error {
	if df.Nrow() == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}
	if err := df.WriteJSON(w); err != nil {
		return fmt.Errorf("gravar JSON: %w", err)
	}
	return nil
}

// WriteNDJSON 每行一个对象
func WriteNDJSON(w io.Writer, df dataframe.DataFrame) error {
	enc := json.NewEncoder(w)
	for _, row := range df.Maps() {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("gravar NDJSON: %w", err)
		}
	}
	return nil
}

// writeFile 创建文件并按需gzip压缩,出错时删除写了一半的文件
func writeFile(path string, gz bool, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("criar arquivo %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("fechar arquivo %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	var w io.Writer = f
	if gz {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("compactar arquivo %s: %w", path, cerr)
			}
		}()
		w = zw
	}

	if err := write(w); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
