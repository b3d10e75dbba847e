// Package llm 定义调用大模型的统一接口与模型目录。具体实现位于 openai 与 echo 子包。
package llm
